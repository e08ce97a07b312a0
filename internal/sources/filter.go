package sources

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Verdict is the outcome of evaluating a candidate's citations.
type Verdict struct {
	Accepted bool
	// Issuers are the surviving issuer names in citation order, deduplicated.
	Issuers []string
	Reason  string
}

// Filter applies a Catalog to citation strings.
type Filter struct {
	catalog  *Catalog
	variants []variant
	deny     []string
	quality  []string
}

type variant struct {
	needle string
	name   string
}

// NewFilter prepares a Filter. Matching is case-insensitive.
func NewFilter(c *Catalog) *Filter {
	f := &Filter{catalog: c}
	for _, o := range c.Outlets {
		for _, v := range o.Variants {
			f.variants = append(f.variants, variant{needle: fold(v), name: o.Name})
		}
	}
	for _, d := range c.Denylist {
		f.deny = append(f.deny, fold(d))
	}
	for _, q := range c.HighQuality {
		f.quality = append(f.quality, fold(q))
	}
	return f
}

// Issuer extracts the issuer of one citation. The trailing segment after
// " - " or " | " is used when present; otherwise the outlet dictionary is
// searched. Denylisted issuers and citations naming no known outlet are
// rejected.
func (f *Filter) Issuer(citation string) (string, bool) {
	citation = strings.TrimSpace(citation)
	if citation == "" {
		return "", false
	}

	if seg, ok := trailingSegment(citation); ok {
		if f.denied(seg) {
			return "", false
		}
		if name, ok := f.lookup(seg); ok {
			return name, true
		}
		return seg, true
	}

	if f.denied(citation) {
		return "", false
	}
	return f.lookup(citation)
}

// IsHighQuality reports whether issuer belongs to the high-quality subset.
func (f *Filter) IsHighQuality(issuer string) bool {
	folded := fold(issuer)
	for _, q := range f.quality {
		if strings.Contains(folded, q) {
			return true
		}
	}
	return false
}

// Evaluate applies the multi-sourcing rule: at least one citation must
// survive, and a lone surviving citation must be high-quality.
func (f *Filter) Evaluate(citations []string) Verdict {
	var issuers []string
	surviving := 0
	seen := make(map[string]bool)
	for _, c := range citations {
		name, ok := f.Issuer(c)
		if !ok {
			zap.L().Debug("citation rejected", zap.String("citation", c))
			continue
		}
		surviving++
		if key := fold(name); !seen[key] {
			seen[key] = true
			issuers = append(issuers, name)
		}
	}

	switch {
	case surviving == 0:
		return Verdict{Reason: "no credible sources"}
	case surviving == 1 && !f.IsHighQuality(issuers[0]):
		return Verdict{Issuers: issuers, Reason: fmt.Sprintf("single source %q is not high-quality", issuers[0])}
	default:
		return Verdict{Accepted: true, Issuers: issuers}
	}
}

// RestrictionsPrompt renders the allow-list constraint prepended to every
// oracle prompt.
func (f *Filter) RestrictionsPrompt() string {
	names := make([]string, 0, len(f.catalog.Outlets))
	for _, o := range f.catalog.Outlets {
		names = append(names, o.Name)
	}
	var b strings.Builder
	b.WriteString("CRITICAL SOURCE RESTRICTIONS - YOU MUST FOLLOW THESE RULES:\n\n")
	b.WriteString("1. ONLY use information from TRUSTWORTHY SOURCES including:\n")
	b.WriteString("   - Government websites (.gov, .mil, official embassy sites)\n")
	b.WriteString("   - International organizations (UN, NATO, EU, World Bank, IMF, WTO)\n")
	fmt.Fprintf(&b, "   - Established news outlets: %s\n", strings.Join(names, ", "))
	if len(f.catalog.Domains) > 0 {
		fmt.Fprintf(&b, "   - Approved domains: %s\n", strings.Join(f.catalog.Domains, ", "))
	}
	b.WriteString("2. DO NOT use information from social media, blogs, forums, wikis, aggregators or unverified outlets")
	if len(f.catalog.Denylist) > 0 {
		fmt.Fprintf(&b, " (including %s)", strings.Join(f.catalog.Denylist, ", "))
	}
	b.WriteString(".\n")
	b.WriteString("3. Cross-reference facts across multiple trustworthy sources and prefer primary sources.\n")
	b.WriteString("4. If you cannot find trustworthy sources, say \"insufficient verified sources\" and make no claim.\n")
	return b.String()
}

func (f *Filter) lookup(s string) (string, bool) {
	folded := fold(s)
	for _, v := range f.variants {
		if strings.Contains(folded, v.needle) {
			return v.name, true
		}
	}
	return "", false
}

func (f *Filter) denied(s string) bool {
	folded := fold(s)
	for _, d := range f.deny {
		if strings.Contains(folded, d) {
			return true
		}
	}
	return false
}

func trailingSegment(citation string) (string, bool) {
	for _, sep := range []string{" - ", " | "} {
		if i := strings.LastIndex(citation, sep); i >= 0 {
			seg := strings.TrimSpace(citation[i+len(sep):])
			if seg != "" {
				return seg, true
			}
		}
	}
	return "", false
}
