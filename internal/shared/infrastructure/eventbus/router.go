package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Subscriber receives envelopes whose routing key matches one of its
// patterns. Patterns use AMQP topic syntax: "*" is exactly one word, "#" is
// zero or more.
type Subscriber interface {
	Patterns() []string
	Handle(ctx context.Context, env *Envelope) error
}

type binding struct {
	pattern string
	sub     Subscriber
}

// Router fans envelopes out to subscribers in subscription order.
type Router struct {
	mu       sync.RWMutex
	bindings []binding
	logger   *slog.Logger
}

func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger}
}

// Subscribe binds sub to each of its patterns.
func (r *Router) Subscribe(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range sub.Patterns() {
		r.bindings = append(r.bindings, binding{pattern: p, sub: sub})
		r.logger.Debug("subscribed", "pattern", p)
	}
}

// Route returns the subscribers for routingKey. A subscriber bound by
// several matching patterns appears once.
func (r *Router) Route(routingKey string) []Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []Subscriber
	for _, b := range r.bindings {
		if MatchTopic(b.pattern, routingKey) && !slices.Contains(subs, b.sub) {
			subs = append(subs, b.sub)
		}
	}
	return subs
}

// Patterns lists the distinct bound patterns in subscription order.
func (r *Router) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, b := range r.bindings {
		if !slices.Contains(out, b.pattern) {
			out = append(out, b.pattern)
		}
	}
	return out
}

// Dispatch hands env to every matching subscriber. All subscribers run even
// when one fails; the failures are joined.
func (r *Router) Dispatch(ctx context.Context, env *Envelope) error {
	var errs []error
	for _, sub := range r.Route(env.RoutingKey) {
		if err := sub.Handle(ctx, env); err != nil {
			r.logger.Error("subscriber failed",
				"routing_key", env.RoutingKey,
				"event_id", env.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MatchTopic reports whether routingKey matches an AMQP topic pattern.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}
