package index

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerGroup holds one circuit breaker per index host, so a dead
// registry trips open instead of being hammered once per package.
type breakerGroup struct {
	mu       sync.RWMutex
	breakers map[string]*circuit.Breaker
}

func newBreakerGroup() *breakerGroup {
	return &breakerGroup{
		breakers: make(map[string]*circuit.Breaker),
	}
}

func (g *breakerGroup) get(host string) *circuit.Breaker {
	g.mu.RLock()
	breaker, exists := g.breakers[host]
	g.mu.RUnlock()

	if exists {
		return breaker
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double-check after acquiring write lock
	if breaker, exists := g.breakers[host]; exists {
		return breaker
	}

	// Trips after 5 consecutive failures, recovers on exponential backoff.
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	opts := &circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	}
	breaker = circuit.NewBreakerWithOptions(opts)

	g.breakers[host] = breaker
	return breaker
}

// do runs fn through the host's circuit breaker.
func (g *breakerGroup) do(host string, fn func() error) error {
	breaker := g.get(host)

	if !breaker.Ready() {
		return fmt.Errorf("circuit breaker open for %s", host)
	}

	return breaker.Call(fn, 0)
}

// extractHost extracts a host from a URL for circuit breaker grouping.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		// Fallback to simple truncation
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}
