// Package ratelimit keeps one token bucket per (action, user) pair.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited matches every *Error returned by Limiter.Allow.
var ErrRateLimited = errors.New("rate limit exceeded")

// Action names a rate-limited operation.
type Action string

const (
	CreateTask          Action = "createTask"
	UpdateTask          Action = "updateTask"
	DeleteTask          Action = "deleteTask"
	CreateThread        Action = "createThread"
	SendMessage         Action = "sendMessage"
	CreateScheduledTask Action = "createScheduledTask"
	UpdateScheduledTask Action = "updateScheduledTask"
	UpdatePreferences   Action = "updatePreferences"
)

// Policy is a token bucket refilled with Rate tokens per Period, holding at
// most Burst tokens.
type Policy struct {
	Rate   int
	Period time.Duration
	Burst  int
}

func (p Policy) limit() rate.Limit {
	if p.Rate <= 0 || p.Period <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(p.Rate) / p.Period.Seconds())
}

// DefaultPolicies are the production limits.
func DefaultPolicies() map[Action]Policy {
	return map[Action]Policy{
		CreateTask:          {Rate: 20, Period: time.Minute, Burst: 5},
		UpdateTask:          {Rate: 50, Period: time.Minute, Burst: 10},
		DeleteTask:          {Rate: 30, Period: time.Minute, Burst: 5},
		CreateThread:        {Rate: 10, Period: time.Hour, Burst: 3},
		SendMessage:         {Rate: 20, Period: time.Hour, Burst: 5},
		CreateScheduledTask: {Rate: 5, Period: time.Hour, Burst: 2},
		UpdateScheduledTask: {Rate: 10, Period: time.Hour, Burst: 3},
		UpdatePreferences:   {Rate: 10, Period: time.Minute, Burst: 2},
	}
}

// Error reports a rejected call.
type Error struct {
	Action     Action
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *Error) Is(target error) bool { return target == ErrRateLimited }

type bucketKey struct {
	action Action
	key    string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	policies map[Action]Policy
	buckets  map[bucketKey]*bucket
	now      func() time.Time
	idleTTL  time.Duration
	calls    int
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithIdleTTL sets how long an untouched bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = ttl }
}

func New(policies map[Action]Policy, opts ...Option) *Limiter {
	l := &Limiter{
		policies: policies,
		buckets:  make(map[bucketKey]*bucket),
		now:      time.Now,
		idleTTL:  2 * time.Hour,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token of action for key. Unknown actions are never
// limited.
func (l *Limiter) Allow(action Action, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	policy, ok := l.policies[action]
	if !ok {
		return nil
	}

	now := l.now()
	l.calls++
	if l.calls%256 == 0 {
		l.evictLocked(now)
	}

	k := bucketKey{action: action, key: key}
	b, ok := l.buckets[k]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(policy.limit(), policy.Burst)}
		l.buckets[k] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return &Error{Action: action, RetryAfter: policy.Period}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &Error{Action: action, RetryAfter: delay}
	}
	return nil
}

// Len reports the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Evict drops buckets idle for longer than the TTL.
func (l *Limiter) Evict() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictLocked(l.now())
}

func (l *Limiter) evictLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, k)
		}
	}
}
