// Package health serves /livez and /readyz for the promotion API.
//
// One poller runs every registered check concurrently once per interval. A
// check is reported failing after three consecutive errors and recovers on
// its first success.
package health

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

const failureThreshold = 3

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Status is the last observed state of one check.
type Status struct {
	Healthy   bool
	Err       error
	CheckedAt time.Time
}

type check struct {
	name      string
	readiness bool
	timeout   time.Duration
	fn        CheckFunc

	status atomic.Pointer[Status]
	// fails is owned by the poller; polls never overlap.
	fails int
}

func (c *check) run(ctx context.Context, now time.Time) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	if err != nil {
		c.fails++
	} else {
		c.fails = 0
	}
	c.status.Store(&Status{
		Healthy:   c.fails < failureThreshold,
		Err:       err,
		CheckedAt: now,
	})
}

// Health holds the registered checks and the manual readiness switch.
type Health struct {
	ready atomic.Bool
	now   func() time.Time

	mu     sync.Mutex
	checks []*check
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{now: time.Now}
}

// AddLivenessCheck registers a check reported by /livez.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, false, timeout, fn)
}

// AddReadinessCheck registers a check reported by /readyz.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.add(name, true, timeout, fn)
}

func (h *Health) add(name string, readiness bool, timeout time.Duration, fn CheckFunc) {
	c := &check{name: name, readiness: readiness, timeout: timeout, fn: fn}
	// Unchecked counts as healthy so startup is not blocked on the first poll.
	c.status.Store(&Status{Healthy: true})

	h.mu.Lock()
	h.checks = append(h.checks, c)
	h.mu.Unlock()
}

func (h *Health) registered(readiness bool) []*check {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.DeleteFunc(slices.Clone(h.checks), func(c *check) bool {
		return c.readiness != readiness
	})
}

// Start polls right away and then every interval until Stop or ctx ends.
// A second Start before Stop is a no-op.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	if h.cancel != nil {
		h.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h.cancel, h.done = cancel, done
	h.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			h.poll(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// poll runs every check once and waits for all of them.
func (h *Health) poll(ctx context.Context) {
	h.mu.Lock()
	checks := slices.Clone(h.checks)
	h.mu.Unlock()

	now := h.now()
	var g errgroup.Group
	for _, c := range checks {
		g.Go(func() error {
			c.run(ctx, now)
			return nil
		})
	}
	_ = g.Wait()
}

// Stop ends polling and waits for the poller to exit. Safe to call twice.
func (h *Health) Stop() {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetReady flips the manual readiness switch, e.g. off during shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady is true when marked ready and every readiness check is healthy.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, c := range h.registered(true) {
		if !c.status.Load().Healthy {
			return false
		}
	}
	return true
}

// LiveEndpoint answers /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.respond(w, h.registered(false), nil)
}

// ReadyEndpoint answers /readyz. It fails while the service is not marked
// ready even if every check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()
	h.respond(w, h.registered(true), &ready)
}

// respond writes
//
//	{"status":"ok"|"unhealthy","ready":bool,"checks":{"name":{"status":"ok"|"failing","error":"...","checkedAt":"..."}}}
//
// with checks sorted by name. ready is present only on /readyz.
func (h *Health) respond(w http.ResponseWriter, checks []*check, ready *bool) {
	slices.SortFunc(checks, func(a, b *check) int { return strings.Compare(a.name, b.name) })

	healthy := ready == nil || *ready
	statuses := make([]*Status, len(checks))
	for i, c := range checks {
		statuses[i] = c.status.Load()
		healthy = healthy && statuses[i].Healthy
	}

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("status")
	if healthy {
		e.Str("ok")
	} else {
		e.Str("unhealthy")
	}
	if ready != nil {
		e.FieldStart("ready")
		e.Bool(*ready)
	}
	e.FieldStart("checks")
	e.ObjStart()
	for i, c := range checks {
		st := statuses[i]
		e.FieldStart(c.name)
		e.ObjStart()
		e.FieldStart("status")
		if st.Healthy {
			e.Str("ok")
		} else {
			e.Str("failing")
		}
		if st.Err != nil {
			e.FieldStart("error")
			e.Str(st.Err.Error())
		}
		if !st.CheckedAt.IsZero() {
			e.FieldStart("checkedAt")
			e.Str(st.CheckedAt.UTC().Format(time.RFC3339))
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	e.ObjEnd()

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
