package services

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/state"
)

// SessionService mirrors the auth gateway's session as observable values.
// It holds no package-level state; several instances may follow the same
// gateway.
type SessionService struct {
	auth     Authenticator
	loggedIn *state.Var[bool]
	session  *state.Var[*models.Session]

	mu          sync.Mutex
	unsubscribe func()
	gen         uint64
}

// NewSessionService creates a stopped SessionService.
func NewSessionService(auth Authenticator) *SessionService {
	return &SessionService{
		auth:     auth,
		loggedIn: state.NewVar(false),
		session:  state.NewVar[*models.Session](nil),
	}
}

// Start begins following session changes. The values reflect the current
// session as soon as Start returns. Cancelling ctx has the same effect as Stop.
func (s *SessionService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		return
	}

	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	detach := s.auth.OnSessionChange(func(session *models.Session) {
		s.session.Set(session)
		s.loggedIn.Set(session != nil)
	})
	s.unsubscribe = func() {
		cancel()
		detach()
	}
	go func() {
		<-ctx.Done()
		detach()
		s.mu.Lock()
		if s.gen == gen {
			s.unsubscribe = nil
		}
		s.mu.Unlock()
	}()
}

// Stop detaches from the auth gateway. The last values are kept.
func (s *SessionService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// LoggedIn reports whether a user is signed in.
func (s *SessionService) LoggedIn() *state.Var[bool] {
	return s.loggedIn
}

// Session is the current session, nil when signed out.
func (s *SessionService) Session() *state.Var[*models.Session] {
	return s.session
}

// SignOut ends the current session.
func (s *SessionService) SignOut() {
	s.auth.SignOut()
}
