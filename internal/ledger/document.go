package ledger

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/corpus-refresh/internal/jsonfile"
	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/sources"
)

const (
	updatesKey     = "updates"
	sourcesKey     = "sources"
	lastUpdatedKey = "last_updated"
)

// Document is the persisted ledger file. Keys other than updates, sources
// and last_updated are carried through untouched.
type Document struct {
	Updates     []model.LedgerEntry
	Sources     []string
	LastUpdated string

	extra map[string]json.RawMessage
}

// Load reads a ledger document. A missing file yields an empty document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Document{extra: map[string]json.RawMessage{}}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: read %s", path)
	}
	return Decode(data)
}

// Decode parses a ledger document.
func Decode(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "ledger: decode document")
	}
	doc := &Document{extra: make(map[string]json.RawMessage, len(raw))}
	for k, v := range raw {
		var err error
		switch k {
		case updatesKey:
			err = json.Unmarshal(v, &doc.Updates)
		case sourcesKey:
			err = json.Unmarshal(v, &doc.Sources)
		case lastUpdatedKey:
			err = json.Unmarshal(v, &doc.LastUpdated)
		default:
			doc.extra[k] = v
		}
		if err != nil {
			return nil, eris.Wrapf(err, "ledger: decode %s", k)
		}
	}
	return doc, nil
}

// Encode renders the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	out := make(map[string]any, len(d.extra)+3)
	for k, v := range d.extra {
		out[k] = v
	}
	updates := d.Updates
	if updates == nil {
		updates = []model.LedgerEntry{}
	}
	out[updatesKey] = updates
	if d.Sources != nil {
		out[sourcesKey] = d.Sources
	}
	if d.LastUpdated != "" {
		out[lastUpdatedKey] = d.LastUpdated
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "ledger: encode document")
	}
	return data, nil
}

// Merge adds candidates via Merge and returns the added entries. It does
// not touch LastUpdated; Stamp does.
func (d *Document) Merge(candidates []model.LedgerEntry) []model.LedgerEntry {
	merged, added := Merge(d.Updates, candidates)
	d.Updates = merged
	return added
}

// RebuildSources sets Sources to the sorted set of issuers cited by all
// updates.
func (d *Document) RebuildSources(f *sources.Filter) {
	seen := make(map[string]bool)
	list := []string{}
	for _, u := range d.Updates {
		for _, c := range u.Sources {
			name, ok := f.Issuer(c)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			list = append(list, name)
		}
	}
	slices.Sort(list)
	d.Sources = list
}

// Stamp records the date of the last change.
func (d *Document) Stamp(now time.Time) {
	d.LastUpdated = now.Format("2006-01-02")
}

// Save writes the document atomically via a temp file in the same
// directory.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return jsonfile.WriteAtomic(path, data)
}
