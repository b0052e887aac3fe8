// Package resilience wraps external model calls in circuit breakers.
package resilience

import (
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"ai_server/pkg/logger"
)

// ErrCircuitOpen is returned while a breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config for a breaker.
type Config struct {
	Name        string
	MaxRequests uint32        // half-open 상태에서 허용할 요청 수
	Interval    time.Duration // closed 상태에서 카운터 리셋 간격
	Timeout     time.Duration // open 상태 유지 시간 (이후 half-open)

	// OnStateChange is called after logging a transition.
	OnStateChange func(name string, to State)
}

// State mirrors gobreaker states as gauge-friendly numbers.
type State float64

const (
	StateClosed   State = 0
	StateHalfOpen State = 1
	StateOpen     State = 2
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// DefaultConfig returns the settings used for every model provider.
func DefaultConfig(name string) Config {
	return Config{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Breaker guards one external dependency.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker that trips after more than 5 consecutive
// failures, or a failure ratio of 60% over at least 10 requests.
func NewBreaker(cfg Config) *Breaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, fromGobreaker(to))
			}
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.cb.Name()
}

// State returns the current state.
func (b *Breaker) State() State {
	return fromGobreaker(b.cb.State())
}

// Call runs fn through the breaker.
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	if b == nil {
		return fn()
	}

	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s", ErrCircuitOpen, b.cb.Name())
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

func fromGobreaker(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}
