// Package mockapi is a scripted in-process fake of the mail notification backend used by tests.
package mockapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const prefix = "/api/v1"

// A handful of fixed fixtures.
const (
	ResetToken = "reset-token"
)

// Server is a fake backend. Tokens are issued sequentially: A1/R1, A2/R2, ...
type Server struct {
	*httptest.Server
	mux sync.Mutex

	users   map[string]*user
	access  map[string]string
	refresh map[string]string
	seq     int

	counts     map[string]int
	authHeader []string

	behavior Behavior

	held    int
	release chan struct{}

	accounts      map[uuid.UUID]map[string]interface{}
	channels      map[uuid.UUID]map[string]interface{}
	rules         map[uuid.UUID]map[string]interface{}
	notifications []map[string]interface{}
}

// Behavior scripts failures of the fake backend.
type Behavior struct {
	// RefreshFails makes the refresh endpoint answer 401.
	RefreshFails bool
	// AlwaysUnauthorized makes every protected endpoint answer 401.
	AlwaysUnauthorized bool
	// Forbidden makes every protected endpoint answer 403.
	Forbidden bool
	// ProfileFails makes /users/me answer 500.
	ProfileFails bool
	// HoldUnauthorized, when > 0, parks 401 answers until that many are pending.
	HoldUnauthorized int
	// RefreshDelay delays the refresh answer.
	RefreshDelay time.Duration
}

// Configure mutates the scripted behavior.
func (s *Server) Configure(fn func(b *Behavior)) {
	s.mux.Lock()
	defer s.mux.Unlock()
	fn(&s.behavior)
}

type user struct {
	id        uuid.UUID
	email     string
	password  string
	createdAt time.Time
}

// New starts a fake backend with one registered user.
func New(email, password string) *Server {
	s := &Server{
		users:    map[string]*user{},
		access:   map[string]string{},
		refresh:  map[string]string{},
		counts:   map[string]int{},
		accounts: map[uuid.UUID]map[string]interface{}{},
		channels: map[uuid.UUID]map[string]interface{}{},
		rules:    map[uuid.UUID]map[string]interface{}{},
		release:  make(chan struct{}),
	}
	if email != "" {
		s.users[email] = &user{id: uuid.New(), email: email, password: password, createdAt: time.Now().UTC()}
	}
	mux := http.NewServeMux()
	mux.HandleFunc(prefix+"/auth/login", s.handleLogin)
	mux.HandleFunc(prefix+"/auth/register", s.handleRegister)
	mux.HandleFunc(prefix+"/auth/refresh", s.handleRefresh)
	mux.HandleFunc(prefix+"/auth/forgot-password", s.handleForgot)
	mux.HandleFunc(prefix+"/auth/reset-password", s.handleReset)
	mux.HandleFunc(prefix+"/", s.protected)
	s.Server = httptest.NewServer(mux)
	return s
}

// Count returns how many times an endpoint (path relative to /api/v1) was hit.
func (s *Server) Count(path string) int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.counts[path]
}

// AuthHeaders returns the Authorization header of every protected request, in arrival order.
func (s *Server) AuthHeaders() []string {
	s.mux.Lock()
	defer s.mux.Unlock()
	return append([]string(nil), s.authHeader...)
}

// Issue creates a token pair for email, as a login would.
func (s *Server) Issue(email string) (string, string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.issue(email)
}

// ExpireAccessTokens invalidates every issued access token, keeping refresh tokens.
func (s *Server) ExpireAccessTokens() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.access = map[string]string{}
}

// AddNotification appends a history entry.
func (s *Server) AddNotification(subject string) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.notifications = append(s.notifications, map[string]interface{}{
		"id": uuid.New(), "senderName": "Sender", "senderAddress": "sender@example.com",
		"subject": subject, "preview": subject, "deliveryStatus": "DELIVERED",
		"channelType": "slack", "createdAt": time.Now().UTC(),
	})
}

func (s *Server) issue(email string) (string, string) {
	s.seq++
	accessToken := fmt.Sprintf("A%d", s.seq)
	refreshToken := fmt.Sprintf("R%d", s.seq)
	s.access[accessToken] = email
	s.refresh[refreshToken] = email
	return accessToken, refreshToken
}

func (s *Server) count(path string) {
	s.mux.Lock()
	s.counts[strings.TrimPrefix(path, prefix)]++
	s.mux.Unlock()
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	body := map[string]string{}
	if !decode(w, r, &body) {
		return
	}
	s.mux.Lock()
	u, ok := s.users[body["email"]]
	if !ok || u.password != body["password"] {
		s.mux.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	accessToken, refreshToken := s.issue(u.email)
	s.mux.Unlock()
	writeTokens(w, http.StatusOK, accessToken, refreshToken)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	body := map[string]string{}
	if !decode(w, r, &body) {
		return
	}
	s.mux.Lock()
	if _, ok := s.users[body["email"]]; ok {
		s.mux.Unlock()
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	s.users[body["email"]] = &user{id: uuid.New(), email: body["email"], password: body["password"], createdAt: time.Now().UTC()}
	accessToken, refreshToken := s.issue(body["email"])
	s.mux.Unlock()
	writeTokens(w, http.StatusCreated, accessToken, refreshToken)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	s.mux.Lock()
	delay := s.behavior.RefreshDelay
	s.mux.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	body := map[string]string{}
	if !decode(w, r, &body) {
		return
	}
	s.mux.Lock()
	email, ok := s.refresh[body["refreshToken"]]
	if !ok || s.behavior.RefreshFails {
		s.mux.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	delete(s.refresh, body["refreshToken"])
	accessToken, refreshToken := s.issue(email)
	s.mux.Unlock()
	writeTokens(w, http.StatusOK, accessToken, refreshToken)
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	writeJSON(w, http.StatusOK, map[string]string{"message": "If the email exists, a reset link has been sent."})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	body := map[string]string{}
	if !decode(w, r, &body) {
		return
	}
	if body["token"] != ResetToken {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password has been reset successfully."})
}

// protected authenticates the bearer token and dispatches resource endpoints.
func (s *Server) protected(w http.ResponseWriter, r *http.Request) {
	s.count(r.URL.Path)
	header := r.Header.Get("Authorization")
	s.mux.Lock()
	s.authHeader = append(s.authHeader, header)
	email, ok := s.access[strings.TrimPrefix(header, "Bearer ")]
	forbidden, always := s.behavior.Forbidden, s.behavior.AlwaysUnauthorized
	s.mux.Unlock()
	switch {
	case forbidden:
		writeError(w, http.StatusForbidden, "Account disabled")
		return
	case always || !ok:
		s.hold()
		writeError(w, http.StatusUnauthorized, "Token expired")
		return
	}
	s.route(w, r, email)
}

// hold parks a 401 answer until HoldUnauthorized answers are pending, then releases them together.
func (s *Server) hold() {
	s.mux.Lock()
	if s.behavior.HoldUnauthorized <= 0 {
		s.mux.Unlock()
		return
	}
	s.held++
	release := s.release
	if s.held >= s.behavior.HoldUnauthorized {
		s.behavior.HoldUnauthorized = 0
		s.held = 0
		s.release = make(chan struct{})
		close(release)
	}
	s.mux.Unlock()
	<-release
}

func decode(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed body")
		return false
	}
	return true
}

func writeTokens(w http.ResponseWriter, status int, accessToken, refreshToken string) {
	writeJSON(w, status, map[string]interface{}{"accessToken": accessToken, "refreshToken": refreshToken, "expiresIn": 900})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error":     http.StatusText(status),
		"message":   message,
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
