package desk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/controller"
	"bitbucket.org/crgw/rental-desk/internal/pricing"
	"bitbucket.org/crgw/rental-desk/internal/session"
	"bitbucket.org/crgw/rental-desk/internal/tools/locking"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var ErrSessionNotFound = errors.New("session not found")

// Dependencies are shared by every view session. Nil redis clients keep credentials and
// submission locks in process.
type Dependencies struct {
	Remote            controller.Remote
	Pricing           pricing.Engine
	RedirectDelay     time.Duration
	CredentialsClient *redis.Client
	LocksClient       *redis.Client
	LockTTL           time.Duration
	SlowThreshold     time.Duration
}

// Session is one open booking view.
type Session struct {
	Id         string
	controller *controller.Controller
	store      session.Store
	sink       *sink
	hub        *Hub
	logger     *zerolog.Logger
}

func (s *Session) View(ctx context.Context) SessionView {
	return renderView(s.Id, s.controller.State(ctx), s.sink)
}

type Registry struct {
	dependencies Dependencies
	logger       *zerolog.Logger

	mutex    sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(dependencies Dependencies, logger *zerolog.Logger) *Registry {
	return &Registry{
		dependencies: dependencies,
		logger:       logger,
		sessions:     make(map[string]*Session),
	}
}

// Open creates a session holding token and mounts its controller.
func (r *Registry) Open(ctx context.Context, token string) (*Session, error) {
	id := uuid.New().String()
	logger := r.logger.With().Str("sessionId", id).Logger()

	store := r.credentialStore(id)
	if token != "" {
		if err := store.Save(ctx, token); err != nil {
			return nil, fmt.Errorf("failed to store credential: %w", err)
		}
	}

	hub := NewHub(&logger)
	presentation := newSink(hub)

	s := &Session{
		Id: id,
		controller: controller.New(controller.Options{
			Credentials:   store,
			Remote:        r.dependencies.Remote,
			Busy:          r.submissionLock(id),
			Pricing:       r.dependencies.Pricing,
			Notifier:      presentation,
			Navigator:     presentation,
			RedirectDelay: r.dependencies.RedirectDelay,
			Logger:        &logger,
		}),
		store:  store,
		sink:   presentation,
		hub:    hub,
		logger: &logger,
	}

	r.mutex.Lock()
	r.sessions[id] = s
	r.mutex.Unlock()

	if _, err := s.controller.Mount(ctx); err != nil {
		r.Close(ctx, id)
		return nil, err
	}

	logger.Info().Msg("View session opened")

	return s, nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Close tears the session down: the pending redirect is cancelled, event clients are
// disconnected and the credential slot is released.
func (r *Registry) Close(ctx context.Context, id string) error {
	r.mutex.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mutex.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	s.controller.Teardown()
	s.hub.Close()

	if err := s.store.Clear(ctx); err != nil {
		s.logger.Err(err).Msg("Unable to release credential")
	}

	s.logger.Info().Msg("View session closed")

	return nil
}

// Shutdown closes every open session.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mutex.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mutex.RUnlock()

	for _, id := range ids {
		_ = r.Close(ctx, id)
	}
}

func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}

func (r *Registry) credentialStore(id string) session.Store {
	if r.dependencies.CredentialsClient == nil {
		return session.NewMemoryStore("")
	}
	return session.NewRedisStore(r.dependencies.CredentialsClient, "credential:"+id)
}

func (r *Registry) submissionLock(id string) locking.Lock {
	if r.dependencies.LocksClient == nil {
		return locking.NewLocalLock()
	}
	return locking.NewRedisLock(r.dependencies.LocksClient, "submission:"+id, r.dependencies.LockTTL)
}
