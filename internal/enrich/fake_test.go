package enrich

import (
	"context"
	"strings"
	"sync"
)

// routedOracle answers by prompt kind so a whole pipeline can run against
// canned responses.
type routedOracle struct {
	mu sync.Mutex

	staleness []string
	candidate []string
	force     []string
	err       error

	calls map[string]int
}

func (o *routedOracle) Generate(_ context.Context, prompt string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = map[string]int{}
	}

	kind := "candidate"
	switch {
	case strings.Contains(prompt, "You are a CONSERVATIVE analyst"):
		kind = "staleness"
	case strings.Contains(prompt, "USER GAVE EXPLICIT PERMISSION"):
		kind = "force"
	}
	o.calls[kind]++
	if o.err != nil {
		return "", o.err
	}

	var q *[]string
	switch kind {
	case "staleness":
		q = &o.staleness
	case "force":
		q = &o.force
	default:
		q = &o.candidate
	}
	if len(*q) == 0 {
		return "", nil
	}
	resp := (*q)[0]
	if len(*q) > 1 {
		*q = (*q)[1:]
	}
	return resp, nil
}

func (o *routedOracle) count(kind string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls[kind]
}
