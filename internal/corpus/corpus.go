// Package corpus loads and saves the record corpus. Records and fields the
// refresh never touches round-trip byte for byte.
package corpus

import (
	"encoding/json"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/jsonfile"
	"github.com/sells-group/corpus-refresh/internal/model"
)

// Record attribute keys maintained by the refresh.
const (
	NameKey            = "country_name"
	AnalysisDateKey    = "enhanced_analysis_date"
	SelectiveUpdateKey = "last_selective_update"
)

// Document is a corpus file: arbitrary top-level keys plus one collection
// of records keyed by ID.
type Document struct {
	collection string
	top        map[string]json.RawMessage
	records    map[string]*Record
}

// Record is one addressable entity and its raw attributes.
type Record struct {
	ID     string
	fields map[string]json.RawMessage
}

// Load reads a corpus document from path.
func Load(path, collection string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: read %s", path)
	}
	return Decode(data, collection)
}

// Decode parses a corpus document. A missing collection key yields an
// empty collection.
func Decode(data []byte, collection string) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, eris.Wrap(err, "corpus: decode document")
	}
	if top == nil {
		top = map[string]json.RawMessage{}
	}
	doc := &Document{collection: collection, top: top, records: map[string]*Record{}}

	raw, ok := top[collection]
	if !ok {
		return doc, nil
	}
	var recs map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, eris.Wrapf(err, "corpus: decode collection %q", collection)
	}
	for id, fields := range recs {
		if fields == nil {
			fields = map[string]json.RawMessage{}
		}
		doc.records[id] = &Record{ID: id, fields: fields}
	}
	return doc, nil
}

// IDs returns record IDs in sorted order.
func (d *Document) IDs() []string {
	return slices.Sorted(maps.Keys(d.records))
}

// Record looks up a record by ID.
func (d *Document) Record(id string) (*Record, bool) {
	r, ok := d.records[id]
	return r, ok
}

// Len is the number of records.
func (d *Document) Len() int { return len(d.records) }

// Encode renders the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	out := make(map[string]any, len(d.top)+1)
	for k, v := range d.top {
		out[k] = v
	}
	recs := make(map[string]map[string]json.RawMessage, len(d.records))
	for id, r := range d.records {
		recs[id] = r.fields
	}
	out[d.collection] = recs

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "corpus: encode document")
	}
	return data, nil
}

// Save writes the document atomically.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return jsonfile.WriteAtomic(path, data)
}

// Name is the display name of the record, falling back to its ID.
func (r *Record) Name() string {
	if s := r.str(NameKey); s != "" {
		return s
	}
	return r.ID
}

// Section decodes the named section. present is false when the record
// has no such attribute.
func (r *Record) Section(sec model.Section) (content model.FieldContent, present bool, err error) {
	raw, ok := r.fields[sec.Name]
	if !ok {
		c, _ := model.ParseFieldContent(nil, sec.Kind)
		return c, false, nil
	}
	c, err := model.ParseFieldContent(raw, sec.Kind)
	if err != nil {
		return model.FieldContent{}, true, eris.Wrapf(err, "corpus: record %s section %s", r.ID, sec.Name)
	}
	return c, true, nil
}

// RawSection returns the stored bytes of a section.
func (r *Record) RawSection(name string) (json.RawMessage, bool) {
	raw, ok := r.fields[name]
	return raw, ok
}

// SetSection replaces a section with content.
func (r *Record) SetSection(name string, content model.FieldContent) error {
	data, err := json.Marshal(content)
	if err != nil {
		return eris.Wrapf(err, "corpus: encode record %s section %s", r.ID, name)
	}
	r.fields[name] = data
	return nil
}

// LastAnalysis parses the record's enhanced_analysis_date.
func (r *Record) LastAnalysis() (time.Time, bool) {
	s := r.str(AnalysisDateKey)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Stamp records that the record changed at now.
func (r *Record) Stamp(now time.Time) {
	r.setStr(AnalysisDateKey, now.Format("2006-01-02"))
	r.setStr(SelectiveUpdateKey, now.Format(time.RFC3339))
}

func (r *Record) str(key string) string {
	raw, ok := r.fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r *Record) setStr(key, val string) {
	data, _ := json.Marshal(val)
	r.fields[key] = data
}
