// File: internal/sink/sink.go
package sink

import (
	"sync"

	"github.com/smartdevs17/token-sentinel/internal/models"
)

// Sink receives the pipeline output events. Downstream collaborators
// (dashboard, alerting, trading) register implementations with the Registry;
// the pipelines never know who is listening. Implementations must not block:
// they are invoked inline from the pipeline loops.
type Sink interface {
	OnTokenDiscovered(e *models.TokenDiscovered)
	OnTokenScored(e *models.TokenScored)
	OnWalletTrade(e *models.WalletTradeObserved)
	OnWalletUpdated(e *models.WalletUpdated)
}

// Registry fans events out to every registered sink. It implements Sink
// itself so pipelines hold a single reference.
type Registry struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewRegistry creates an empty sink registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a sink. Registration order is delivery order.
func (r *Registry) Register(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

func (r *Registry) OnTokenDiscovered(e *models.TokenDiscovered) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		s.OnTokenDiscovered(e)
	}
}

func (r *Registry) OnTokenScored(e *models.TokenScored) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		s.OnTokenScored(e)
	}
}

func (r *Registry) OnWalletTrade(e *models.WalletTradeObserved) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		s.OnWalletTrade(e)
	}
}

func (r *Registry) OnWalletUpdated(e *models.WalletUpdated) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sinks {
		s.OnWalletUpdated(e)
	}
}
