package model

import (
	"encoding/json"
	"maps"

	"github.com/rotisserie/eris"
)

// LedgerEntry is one dated update record in the feed ledger. Title, date
// and source citations are lifted out; every other attribute is kept
// verbatim in Payload so a load/save cycle is lossless.
type LedgerEntry struct {
	Title   string
	Date    string
	Sources []string
	Payload map[string]json.RawMessage
}

const (
	entryTitleKey   = "title"
	entryDateKey    = "announcement_date"
	entrySourcesKey = "source_titles"
)

// Attr decodes a payload attribute as a string. It returns "" when the
// attribute is missing or not a string.
func (e LedgerEntry) Attr(key string) string {
	raw, ok := e.Payload[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *LedgerEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode ledger entry")
	}

	out := LedgerEntry{Payload: make(map[string]json.RawMessage, len(raw))}
	for k, v := range raw {
		switch k {
		case entryTitleKey:
			if err := json.Unmarshal(v, &out.Title); err != nil {
				return eris.Wrap(err, "model: decode ledger entry title")
			}
		case entryDateKey:
			if err := json.Unmarshal(v, &out.Date); err != nil {
				return eris.Wrap(err, "model: decode ledger entry date")
			}
		case entrySourcesKey:
			if err := json.Unmarshal(v, &out.Sources); err != nil {
				return eris.Wrap(err, "model: decode ledger entry sources")
			}
		default:
			out.Payload[k] = v
		}
	}
	*e = out
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e LedgerEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		out[k] = v
	}
	if e.Title != "" {
		out[entryTitleKey] = e.Title
	}
	if e.Date != "" {
		out[entryDateKey] = e.Date
	}
	if e.Sources != nil {
		out[entrySourcesKey] = e.Sources
	}
	return json.Marshal(out)
}

// Clone returns a deep copy of e.
func (e LedgerEntry) Clone() LedgerEntry {
	out := e
	out.Sources = append([]string(nil), e.Sources...)
	out.Payload = maps.Clone(e.Payload)
	return out
}
