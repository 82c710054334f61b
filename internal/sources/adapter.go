// Package sources holds the contract between lead source adapters and the
// ingestion core, plus the processor that applies the processed-message
// ledger around every ingestion.
package sources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"leadintake_backend/internal/leads/domain"
)

// ErrNotALead marks a message that is not a lead at all, or one with neither
// phone nor email. Such messages are recorded as processed and never retried.
var ErrNotALead = errors.New("message does not contain a lead")

// Envelope is one raw message as a transport delivered it.
type Envelope struct {
	MessageID string
	Subject   string
	Body      []byte
	HTML      bool
	Received  time.Time
}

// Inbound is a parsed message ready for ingestion.
type Inbound struct {
	MessageID string
	Record    domain.NormalizedLeadRecord
}

// Adapter converts source-specific messages into normalized records.
type Adapter interface {
	Source() string
	Parse(ctx context.Context, env Envelope) ([]Inbound, error)
}

// SameDayGuarded is implemented by adapters whose senders re-send the same
// inquiry several times a day. Those messages are skipped when a lead with
// the same phone and source was already created today.
type SameDayGuarded interface {
	SameDayGuard() bool
}

func usesSameDayGuard(a Adapter) bool {
	g, ok := a.(SameDayGuarded)
	return ok && g.SameDayGuard()
}

// Registry maps source tags to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry registers adapters by their source tag.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds or replaces the adapter for a.Source().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Source()] = a
}

// Get returns the adapter registered for source.
func (r *Registry) Get(source string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[source]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for source %q", source)
	}
	return a, nil
}

// Sources lists registered tags in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.adapters))
	for tag := range r.adapters {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
