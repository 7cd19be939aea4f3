package core

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerRepository wraps a Repository with a per-repository circuit
// breaker, adapted from the teacher's fetch.CircuitBreakerFetcher. This is
// the mechanism behind §4.G/§9's failure-partitioning requirement: a
// repository that fails repeatedly trips its own breaker so the Reconciler
// fails fast on it without ever affecting another package's run.
type breakerRepository struct {
	inner    Repository
	host     string
	breakers *breakerRegistry
}

// breakerRegistry holds one circuit breaker per key (the Reconciler uses the
// repository descriptor string), shared across Reconciler runs of the same
// repository.
type breakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{breakers: make(map[string]*circuit.Breaker)}
}

func (r *breakerRegistry) get(host string) *circuit.Breaker {
	r.mu.RLock()
	b, ok := r.breakers[host]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[host]; ok {
		return b
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	r.breakers[host] = b
	return b
}

// states returns the open/closed state of every breaker tracked so far, for
// administrative/health-check views (SPEC_FULL.md "Breaker state
// introspection").
func (r *breakerRegistry) states() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := make(map[string]string, len(r.breakers))
	for host, b := range r.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}

// wrapRepository returns a Repository that routes calls through the circuit
// breaker registered for host.
func (r *breakerRegistry) wrapRepository(inner Repository, host string) Repository {
	return &breakerRepository{inner: inner, host: host, breakers: r}
}

func (b *breakerRepository) call(fn func() error) error {
	breaker := b.breakers.get(b.host)
	if !breaker.Ready() {
		return &RepositoryError{Op: "circuit-open", Err: fmt.Errorf("circuit breaker open for repository %s", b.host)}
	}
	return breaker.Call(fn, 0)
}

func (b *breakerRepository) GetTags(ctx context.Context) ([]RefCommit, error) {
	var tags []RefCommit
	err := b.call(func() error {
		var err error
		tags, err = b.inner.GetTags(ctx)
		return err
	})
	return tags, err
}

func (b *breakerRepository) GetBranches(ctx context.Context) ([]RefCommit, error) {
	var branches []RefCommit
	err := b.call(func() error {
		var err error
		branches, err = b.inner.GetBranches(ctx)
		return err
	})
	return branches, err
}

func (b *breakerRepository) ReadFile(ctx context.Context, sha, path string, sink io.Writer) error {
	return b.call(func() error {
		return b.inner.ReadFile(ctx, sha, path, sink)
	})
}

func (b *breakerRepository) GetDownloadUrl(ref string) string {
	return b.inner.GetDownloadUrl(ref)
}
