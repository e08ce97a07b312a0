package feed

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/model"
	"github.com/sells-group/corpus-refresh/internal/recency"
)

// DefaultMaxCandidates caps the entries taken from one oracle response.
const DefaultMaxCandidates = 10

// ErrNoArray is returned when a response holds no JSON array.
var ErrNoArray = eris.New("feed: no JSON array in response")

// ParseCandidates decodes the span from the first '[' to the last ']' of
// resp and keeps at most max entries (DefaultMaxCandidates when max <= 0).
func ParseCandidates(resp string, max int) ([]model.LedgerEntry, error) {
	start := strings.Index(resp, "[")
	end := strings.LastIndex(resp, "]")
	if start < 0 || end <= start {
		return nil, ErrNoArray
	}

	out, err := decodeEach([]byte(resp[start : end+1]))
	if err != nil {
		return nil, eris.Wrap(err, "feed: decode candidates")
	}
	if max <= 0 {
		max = DefaultMaxCandidates
	}
	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

var topicDateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{4})\b`),
	regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`),
	regexp.MustCompile(`(?i)\b((?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\b`),
	regexp.MustCompile(`(?i)\b((?:Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4})\b`),
}

// TopicDate finds the first date mentioned in a requested topic.
func TopicDate(topic string) (time.Time, bool) {
	for _, re := range topicDateRes {
		m := re.FindStringSubmatch(topic)
		if m == nil {
			continue
		}
		s := m[1]
		if !strings.Contains(s, ",") {
			// "May 3 2025" -> "May 3, 2025"
			if i := strings.LastIndex(s, " "); i > 0 && !strings.ContainsAny(s, "/-") {
				s = s[:i] + "," + s[i:]
			}
		}
		if t, ok := recency.ParseDate(s); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// DecodeCandidates reads a candidate file: either a JSON array of entries
// or an object holding them under "updates".
func DecodeCandidates(data []byte) ([]model.LedgerEntry, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		out, err := decodeEach(data)
		if err != nil {
			return nil, eris.Wrap(err, "feed: decode candidate array")
		}
		return out, nil
	}
	var wrapped struct {
		Updates json.RawMessage `json:"updates"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, eris.Wrap(err, "feed: decode candidate document")
	}
	if len(wrapped.Updates) == 0 || string(wrapped.Updates) == "null" {
		return []model.LedgerEntry{}, nil
	}
	out, err := decodeEach(wrapped.Updates)
	if err != nil {
		return nil, eris.Wrap(err, "feed: decode candidate document")
	}
	return out, nil
}

// decodeEach decodes a JSON array element by element. Elements that fail to
// decode are logged and left out; only a malformed array is an error.
func decodeEach(data []byte) ([]model.LedgerEntry, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]model.LedgerEntry, 0, len(raw))
	for i, r := range raw {
		var e model.LedgerEntry
		if err := json.Unmarshal(r, &e); err != nil {
			zap.L().Warn("skipping malformed candidate", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
