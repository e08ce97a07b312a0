// Package oracle wraps the external generation service behind a single
// Generate call with throttling, retry and credential failover.
package oracle

import (
	"strings"
	"sync"

	"github.com/rotisserie/eris"
)

// ErrCredentialsExhausted is returned once every credential in the pool has
// failed with a quota or auth error.
var ErrCredentialsExhausted = eris.New("oracle: all credentials exhausted")

// CredentialPool is an ordered set of API credentials. Exhaustion is
// monotonic: a credential marked exhausted is never handed out again.
type CredentialPool struct {
	mu        sync.Mutex
	keys      []string
	current   int
	exhausted map[int]bool
}

// NewCredentialPool builds a pool from keys, skipping blanks and duplicates.
func NewCredentialPool(keys []string) (*CredentialPool, error) {
	seen := make(map[string]bool, len(keys))
	var clean []string
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		clean = append(clean, k)
	}
	if len(clean) == 0 {
		return nil, eris.New("oracle: no credentials configured")
	}
	return &CredentialPool{keys: clean, exhausted: make(map[int]bool)}, nil
}

// Current returns the index and value of the credential in use. ok is
// false when every credential is exhausted.
func (p *CredentialPool) Current() (index int, key string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current >= len(p.keys) {
		return -1, "", false
	}
	return p.current, p.keys[p.current], true
}

// MarkExhausted retires the credential at index and advances to the next
// unexhausted one. Marking an already-retired index is a no-op.
func (p *CredentialPool) MarkExhausted(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.keys) || p.exhausted[index] {
		return
	}
	p.exhausted[index] = true
	for p.current < len(p.keys) && p.exhausted[p.current] {
		p.current++
	}
}

// Remaining reports how many credentials are still usable.
func (p *CredentialPool) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys) - len(p.exhausted)
}

// Len is the total number of credentials.
func (p *CredentialPool) Len() int {
	return len(p.keys)
}
