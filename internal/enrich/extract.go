package enrich

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrNoObject is returned when a structured response holds no JSON object.
var ErrNoObject = eris.New("enrich: no JSON object in response")

// ExtractObject returns the first balanced {...} span in s. Braces inside
// JSON strings are ignored.
func ExtractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

const valueSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "additionalProperties": {
    "oneOf": [
      {"type": "string"},
      {"type": "number"},
      {"type": "null"},
      {"type": "array", "items": {"type": "string"}}
    ]
  }
}`

const valueSchemaURL = "https://corpus-refresh.schemas.local/section.schema.json"

func compileValueSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(valueSchemaURL, strings.NewReader(valueSchema)); err != nil {
		return nil, eris.Wrap(err, "enrich: load section schema")
	}
	s, err := c.Compile(valueSchemaURL)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: compile section schema")
	}
	return s, nil
}

// validateObject checks that obj decodes to an object of strings, numbers
// and string lists.
func validateObject(schema *jsonschema.Schema, obj string) error {
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "enrich: decode candidate")
	}
	if err := schema.Validate(v); err != nil {
		return eris.Wrap(err, "enrich: candidate failed validation")
	}
	return nil
}
