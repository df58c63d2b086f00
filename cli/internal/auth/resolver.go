// ABOUTME: Auth Resolver producing one session outcome per process
// ABOUTME: Concurrent callers share a single in-flight resolution and its result

package auth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/codersneeded/miniapp/cli/internal/host"
	"github.com/codersneeded/miniapp/cli/internal/models"
	"github.com/codersneeded/miniapp/cli/internal/session"
)

// Backend is the set of session endpoints the resolver drives.
// *client.Client implements it.
type Backend interface {
	Me(ctx context.Context) (*models.Identity, error)
	LoginPlatform(ctx context.Context, assertion string) (*models.AuthResult, error)
	LoginFallback(ctx context.Context) (*models.AuthResult, error)
}

const flightKey = "resolve"

// Resolver runs the resolution sequence at most once at a time and memoizes
// the outcome until Invalidate.
type Resolver struct {
	store   session.Store
	bridge  host.Bridge
	backend Backend
	now     func() time.Time

	group singleflight.Group
	state atomic.Int32
	runs  atomic.Int64

	mu         sync.Mutex
	outcome    *Outcome
	generation uint64
}

// NewResolver wires a resolver. A nil bridge is treated as host.Absent().
func NewResolver(store session.Store, bridge host.Bridge, backend Backend) *Resolver {
	if bridge == nil {
		bridge = host.Absent()
	}
	return &Resolver{
		store:   store,
		bridge:  bridge,
		backend: backend,
		now:     time.Now,
	}
}

// flight is what one run of the sequence hands its waiters.
type flight struct {
	outcome    *Outcome
	generation uint64
}

// Resolve returns the session outcome, running the sequence if none is
// memoized. Every caller, concurrent or later, receives the same *Outcome.
// The sequence itself ignores ctx cancellation; a caller whose ctx ends
// stops waiting and gets Current(). A flight invalidated while running
// is waited out and then replaced, so sequences never overlap.
func (r *Resolver) Resolve(ctx context.Context) *Outcome {
	detached := context.WithoutCancel(ctx)
	for {
		r.mu.Lock()
		if r.outcome != nil {
			o := r.outcome
			r.mu.Unlock()
			return o
		}
		r.mu.Unlock()

		ch := r.group.DoChan(flightKey, func() (interface{}, error) {
			r.mu.Lock()
			gen := r.generation
			if r.outcome != nil {
				o := r.outcome
				r.mu.Unlock()
				return flight{outcome: o, generation: gen}, nil
			}
			r.mu.Unlock()

			o := r.run(detached, gen)

			r.mu.Lock()
			if r.generation == gen {
				r.outcome = o
			}
			r.mu.Unlock()
			return flight{outcome: o, generation: gen}, nil
		})

		select {
		case res := <-ch:
			f := res.Val.(flight)
			if !r.stale(f.generation) {
				return f.outcome
			}
			if ctx.Err() != nil {
				return r.Current()
			}
		case <-ctx.Done():
			return r.Current()
		}
	}
}

// Current returns the memoized outcome, or an Unresolved one.
func (r *Resolver) Current() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome != nil {
		return r.outcome
	}
	return &Outcome{Kind: KindUnresolved}
}

// State reports where the resolver currently is.
func (r *Resolver) State() State {
	return State(r.state.Load())
}

// Runs counts resolution sequences started since construction.
func (r *Resolver) Runs() int64 {
	return r.runs.Load()
}

// Invalidate drops the memoized outcome so the next Resolve starts over.
// An in-flight sequence runs to completion but neither persists nor
// memoizes anything; its waiters move on to a fresh sequence.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.outcome = nil
	r.generation++
	r.mu.Unlock()
	r.state.Store(int32(Idle))
	slog.Debug("Session invalidated")
}

func (r *Resolver) stale(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation != gen
}

// persist applies a store mutation only while gen is current. The lock is
// held across the write so Invalidate cannot interleave with it.
func (r *Resolver) persist(gen uint64, write func() error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return false, nil
	}
	return true, write()
}

func (r *Resolver) setState(s State) {
	prev := State(r.state.Swap(int32(s)))
	slog.Debug("Resolver state", "from", prev, "to", s)
}

// run executes the four steps strictly in order. Every failure is absorbed.
func (r *Resolver) run(ctx context.Context, gen uint64) *Outcome {
	r.runs.Add(1)

	r.setState(CheckingExistingCredential)
	if o := r.resume(ctx, gen); o != nil {
		r.setState(Resumed)
		return o
	}

	if r.bridge.IsHostPresent() {
		if assertion, ok := r.bridge.CurrentAssertion(); ok && assertion != "" {
			r.setState(AttemptingPlatformAuth)
			res, err := r.backend.LoginPlatform(ctx, assertion)
			if o := r.establish(gen, res, err, StrategyPlatform); o != nil {
				r.setState(Established)
				return o
			}
		}
	}

	r.setState(AttemptingLocalFallbackAuth)
	res, err := r.backend.LoginFallback(ctx)
	if o := r.establish(gen, res, err, StrategyFallback); o != nil {
		r.setState(Established)
		return o
	}

	r.setState(EmergencyFallback)
	slog.Warn("All authentication strategies failed, continuing with emergency identity")
	return &Outcome{
		Kind:       KindEmergencyFallback,
		Strategy:   StrategyEmergency,
		Identity:   EmergencyIdentity(),
		ResolvedAt: r.now(),
	}
}

// resume validates a stored credential. Any failure clears the store.
func (r *Resolver) resume(ctx context.Context, gen uint64) *Outcome {
	rec, err := r.store.Load()
	if err != nil {
		slog.Info("Stored session unreadable", "error", err)
		r.clear(gen)
		return nil
	}
	if rec == nil {
		return nil
	}

	id, err := r.backend.Me(ctx)
	if err != nil {
		slog.Info("Stored credential rejected", "error", err)
		r.clear(gen)
		return nil
	}
	if _, err := r.persist(gen, func() error { return r.store.Save(rec.Credential, *id) }); err != nil {
		slog.Warn("Failed to refresh stored identity", "error", err)
	}
	return &Outcome{
		Kind:       KindResumed,
		Strategy:   StrategyExisting,
		Identity:   *id,
		Credential: rec.Credential,
		ResolvedAt: r.now(),
	}
}

// establish persists a successful exchange. A credential that cannot be
// persisted is unusable by the API client and counts as a failure.
func (r *Resolver) establish(gen uint64, res *models.AuthResult, err error, strategy Strategy) *Outcome {
	if err != nil {
		slog.Info("Authentication strategy failed", "strategy", strategy, "error", err)
		return nil
	}
	saved, err := r.persist(gen, func() error { return r.store.Save(res.AccessToken, res.User) })
	if err != nil {
		slog.Warn("Failed to persist session", "strategy", strategy, "error", err)
		return nil
	}
	if saved {
		slog.Info("Session established", "strategy", strategy, "user_id", res.User.ID)
	} else {
		slog.Debug("Session invalidated during exchange, not persisting", "strategy", strategy)
	}
	return &Outcome{
		Kind:       KindEstablished,
		Strategy:   strategy,
		Identity:   res.User,
		Credential: res.AccessToken,
		ResolvedAt: r.now(),
	}
}

func (r *Resolver) clear(gen uint64) {
	if _, err := r.persist(gen, r.store.Clear); err != nil {
		slog.Warn("Failed to clear session", "error", err)
	}
}
