package session

import (
	"context"
	"sync"

	"github.com/viant/mailnotify"
	"github.com/viant/mailnotify/api"
	"github.com/viant/mailnotify/broadcast"
	"github.com/viant/mailnotify/client"
	"github.com/viant/mailnotify/credential"
)

// Store is the single source of truth for whether this process holds an authenticated session.
//
// States: Bootstrapping -> {Unauthenticated, Authenticated}. Authenticated becomes
// Unauthenticated on Logout or on a SignedOut event published by the client,
// and only Login or Register lead back.
type Store struct {
	mux         sync.RWMutex
	state       State
	epoch       uint64
	auth        Authenticator
	users       ProfileFetcher
	credentials credential.Store
	changes     *broadcast.Topic[State]
	unsubscribe func()
	bootstrap   sync.Once
	pending     sync.WaitGroup
	logger      mailnotify.Logger
}

// New creates a session store on top of c, subscribing to its sign-out topic.
func New(c *client.Client, opts ...Option) *Store {
	services := api.New(c)
	ret := &Store{
		state:       State{Loading: true},
		auth:        services.Auth,
		users:       services.Users,
		credentials: c.Store(),
		changes:     broadcast.NewTopic[State](),
		logger:      mailnotify.DefaultLogger,
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.unsubscribe = c.SignedOut().Subscribe(ret.onSignedOut)
	return ret
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.state.clone()
}

// Subscribe registers listener for state changes and returns an unsubscribe function.
func (s *Store) Subscribe(listener func(State)) func() {
	return s.changes.Subscribe(listener)
}

// RequireAuthenticated is the check a protected entry point runs before serving content.
func (s *Store) RequireAuthenticated() error {
	state := s.State()
	switch {
	case state.Loading:
		return ErrBootstrapping
	case !state.Authenticated:
		return ErrNotAuthenticated
	}
	return nil
}

// Bootstrap runs once per store: a persisted access token optimistically marks the session
// authenticated and schedules a best-effort profile fetch. Loading is false once it returns.
func (s *Store) Bootstrap(ctx context.Context) State {
	s.bootstrap.Do(func() {
		pair, err := s.credentials.Load(ctx)
		if err != nil {
			s.logger.Errorf("failed to load persisted credentials: %v", err)
			pair = &credential.Pair{}
		}
		authenticated := pair.HasAccess()
		epoch := s.update(func(state *State) bool {
			state.Loading = false
			state.Authenticated = authenticated
			return false
		})
		if !authenticated {
			return
		}
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			if _, err := s.fetchProfile(context.WithoutCancel(ctx), epoch); err != nil {
				s.logger.Debugf("failed to fetch profile on bootstrap: %v", err)
			}
		}()
	})
	return s.State()
}

// Login authenticates, persists the issued pair and marks the session authenticated.
// A failed profile fetch does not fail the login. On rejection the state is left untouched.
func (s *Store) Login(ctx context.Context, email, password string) (*credential.Pair, error) {
	pair, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, email, pair)
}

// Register creates an account and signs it in, with the same contract as Login.
func (s *Store) Register(ctx context.Context, email, password string) (*credential.Pair, error) {
	pair, err := s.auth.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, email, pair)
}

func (s *Store) establish(ctx context.Context, email string, pair *credential.Pair) (*credential.Pair, error) {
	if err := s.credentials.Save(ctx, pair); err != nil {
		return nil, err
	}
	epoch := s.update(func(state *State) bool {
		state.Loading = false
		state.Authenticated = true
		state.Profile = &api.Profile{Email: email}
		return true
	})
	if _, err := s.fetchProfile(ctx, epoch); err != nil {
		s.logger.Debugf("failed to fetch profile after sign in: %v", err)
	}
	return pair, nil
}

// Logout clears persisted credentials and the in-memory session. It always succeeds locally.
func (s *Store) Logout(ctx context.Context) {
	if err := s.credentials.Clear(ctx); err != nil {
		s.logger.Errorf("failed to clear credentials on logout: %v", err)
	}
	s.reset()
}

// FetchProfile loads the full profile and merges it into the session.
func (s *Store) FetchProfile(ctx context.Context) (*api.Profile, error) {
	s.mux.RLock()
	epoch := s.epoch
	s.mux.RUnlock()
	return s.fetchProfile(ctx, epoch)
}

// fetchProfile merges the result only if no sign in or sign out happened since epoch.
func (s *Store) fetchProfile(ctx context.Context, epoch uint64) (*api.Profile, error) {
	profile, err := s.users.Me(ctx)
	if err != nil {
		return nil, err
	}
	s.mux.Lock()
	if s.epoch != epoch || !s.state.Authenticated {
		s.mux.Unlock()
		return profile, nil
	}
	merged := *profile
	if merged.Email == "" && s.state.Profile != nil {
		merged.Email = s.state.Profile.Email
	}
	s.state.Profile = &merged
	snapshot := s.state.clone()
	s.mux.Unlock()
	s.changes.Publish(snapshot)
	return profile, nil
}

func (s *Store) onSignedOut(event broadcast.SignedOut) {
	s.logger.Infof("session ended by client: %v", event.Reason)
	s.reset()
}

func (s *Store) reset() {
	s.update(func(state *State) bool {
		*state = State{}
		return true
	})
}

// update applies mutate under lock and publishes the new state; it returns the resulting epoch.
// mutate returns true when the change starts a new session generation.
func (s *Store) update(mutate func(state *State) bool) uint64 {
	s.mux.Lock()
	if mutate(&s.state) {
		s.epoch++
	}
	epoch := s.epoch
	snapshot := s.state.clone()
	s.mux.Unlock()
	s.changes.Publish(snapshot)
	return epoch
}

// Wait blocks until background profile fetches finished.
func (s *Store) Wait() {
	s.pending.Wait()
}

// Close detaches the store from the client's sign-out topic.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.pending.Wait()
}
