package session

import (
	"context"
	"log"
	"sync"
	"time"

	"coopleo-web/internal/conversation"
	"coopleo-web/internal/models"
)

// Notifier publishes a live event for one session.
type Notifier func(sessionID string, event models.LiveEvent)

type entry struct {
	controller *conversation.Controller
	lastUsed   time.Time
}

// Registry hands out one live Controller per session so concurrent requests
// from the same browser share its single-flight guard. State is written back
// to the Store after every operation.
type Registry struct {
	store   Store
	backend conversation.Backend
	mailer  conversation.Mailer
	opts    conversation.Options
	notify  Notifier
	now     func() time.Time

	mu   sync.Mutex
	live map[string]*entry
}

func NewRegistry(store Store, backend conversation.Backend, mailer conversation.Mailer, opts conversation.Options, notify Notifier) *Registry {
	return &Registry{
		store:   store,
		backend: backend,
		mailer:  mailer,
		opts:    opts,
		notify:  notify,
		now:     time.Now,
		live:    make(map[string]*entry),
	}
}

// Get returns the session's controller, restoring it from the store on first
// use.
func (r *Registry) Get(ctx context.Context, id string) (*conversation.Controller, error) {
	r.mu.Lock()
	if e, ok := r.live[id]; ok {
		e.lastUsed = r.now()
		r.mu.Unlock()
		return e.controller, nil
	}
	r.mu.Unlock()

	state, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	var notify conversation.NotifyFunc
	if r.notify != nil {
		notify = func(event models.LiveEvent) { r.notify(id, event) }
	}
	c := conversation.NewController(r.backend, r.mailer, r.opts, notify)
	if state != nil {
		c.Restore(*state)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have won the race
	if e, ok := r.live[id]; ok {
		e.lastUsed = r.now()
		return e.controller, nil
	}
	r.live[id] = &entry{controller: c, lastUsed: r.now()}
	return c, nil
}

// Do runs fn against the session's controller and persists the resulting
// state, whether or not fn failed.
func (r *Registry) Do(ctx context.Context, id string, fn func(*conversation.Controller) error) error {
	c, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	opErr := fn(c)

	// persist even if the request was cancelled mid-turn
	if err := r.store.Save(context.WithoutCancel(ctx), id, c.State()); err != nil {
		log.Printf("⚠ Failed to save session %s: %v", id, err)
		if opErr == nil {
			return err
		}
	}
	return opErr
}

// Sweep evicts controllers unused for longer than maxIdle. Their state stays
// in the store.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.live {
		if e.lastUsed.Before(cutoff) && !e.controller.View().Typing {
			delete(r.live, id)
			evicted++
		}
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(maxIdle); n > 0 {
				log.Printf("Evicted %d idle chat sessions", n)
			}
		}
	}
}
