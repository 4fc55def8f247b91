package authtest

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goAuthClient/authhttp"
	"github.com/MrEthical07/goAuthClient/jwt"
	"github.com/MrEthical07/goAuthClient/middleware"
	"github.com/MrEthical07/goAuthClient/refresh"
	"github.com/google/uuid"
)

var (
	errTokenRevoked = errors.New("access token revoked")
	errUnknownToken = errors.New("access token not issued by this server")
)

// Options tune a Server. Zero values take defaults.
type Options struct {
	AccessTTL time.Duration
	Issuer    string
	// RefreshDelay is added to every refresh call.
	RefreshDelay time.Duration
}

// User seeds an account.
type User struct {
	Email    string
	Password string
	Name     string
	Role     string
	OrgID    string
}

type account struct {
	id       string
	orgID    string
	email    string
	name     string
	role     string
	password [32]byte
}

type refreshSession struct {
	userID     string
	secretHash [32]byte
	revoked    bool
}

// Server is an httptest-backed auth backend.
type Server struct {
	srv     *httptest.Server
	tokens  *jwt.Manager
	options Options

	mu       sync.Mutex
	accounts map[string]*account
	sessions map[string]*refreshSession
	live     map[string]bool
	hold     chan struct{}

	rejectRefresh  atomic.Bool
	rejectAccess   atomic.Bool
	refreshCalls   atomic.Int64
	protectedCalls atomic.Int64
}

// NewServer starts a Server and registers its shutdown with t.Cleanup when t is not nil.
func NewServer(t interface{ Cleanup(func()) }, opts Options) (*Server, error) {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.Issuer == "" {
		opts.Issuer = "authtest"
	}

	key, err := refresh.NewSecret()
	if err != nil {
		return nil, err
	}
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:  opts.AccessTTL,
		Secret:     key[:],
		Issuer:     opts.Issuer,
		RequireIAT: true,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		tokens:   tokens,
		options:  opts,
		accounts: make(map[string]*account),
		sessions: make(map[string]*refreshSession),
		live:     make(map[string]bool),
	}
	s.srv = httptest.NewServer(s.routes())

	if t != nil {
		t.Cleanup(s.Close)
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.Handle("/api/", middleware.Guard(s)(http.HandlerFunc(s.handleEcho)))
	mux.Handle("/api/admin/", middleware.RequireRole(s, "owner")(http.HandlerFunc(s.handleEcho)))
	return mux
}

// URL is the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Client returns an HTTP client configured for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Close releases a held refresh and shuts the server down.
func (s *Server) Close() {
	s.ReleaseRefresh()
	s.srv.Close()
}

// AddUser seeds an account and returns its user id.
func (s *Server) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(u)
}

func (s *Server) addUserLocked(u User) string {
	acct := &account{
		id:       uuid.NewString(),
		orgID:    u.OrgID,
		email:    strings.ToLower(u.Email),
		name:     u.Name,
		role:     u.Role,
		password: sha256.Sum256([]byte(u.Password)),
	}
	if acct.orgID == "" {
		acct.orgID = uuid.NewString()
	}
	if acct.role == "" {
		acct.role = "owner"
	}
	s.accounts[acct.email] = acct
	return acct.id
}

// ExpireAccessTokens makes every access token issued so far fail verification.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token := range s.live {
		s.live[token] = false
	}
}

// RejectRefresh makes the refresh endpoint answer 401 while reject is true.
func (s *Server) RejectRefresh(reject bool) {
	s.rejectRefresh.Store(reject)
}

// RejectAccessTokens makes every protected call answer 401 while reject is true, including
// calls with freshly refreshed tokens.
func (s *Server) RejectAccessTokens(reject bool) {
	s.rejectAccess.Store(reject)
}

// HoldRefresh blocks refresh calls until ReleaseRefresh. Calls are still counted on arrival.
func (s *Server) HoldRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold == nil {
		s.hold = make(chan struct{})
	}
}

// ReleaseRefresh unblocks refresh calls held by HoldRefresh.
func (s *Server) ReleaseRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hold != nil {
		close(s.hold)
		s.hold = nil
	}
}

// RefreshCalls is the number of refresh requests received.
func (s *Server) RefreshCalls() int64 {
	return s.refreshCalls.Load()
}

// ProtectedCalls is the number of requests to /api/ routes, accepted or not.
func (s *Server) ProtectedCalls() int64 {
	return s.protectedCalls.Load()
}

// VerifyAccess implements middleware.Verifier.
func (s *Server) VerifyAccess(_ context.Context, token string) (*jwt.AccessClaims, error) {
	s.protectedCalls.Add(1)
	if s.rejectAccess.Load() {
		return nil, errTokenRevoked
	}

	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	valid, ok := s.live[token]
	s.mu.Unlock()
	if !ok {
		return nil, errUnknownToken
	}
	if !valid {
		return nil, errTokenRevoked
	}
	return claims, nil
}

// EchoResponse is the body of every /api/ answer.
type EchoResponse struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Body   string `json:"body,omitempty"`
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	token, _ := middleware.TokenFromContext(r.Context())

	var body []byte
	if r.Body != nil {
		body, _ = readAll(r)
	}

	writeJSON(w, http.StatusOK, EchoResponse{
		Method: r.Method,
		Path:   r.URL.Path,
		Token:  token,
		UserID: claims.UID,
		Body:   string(body),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in authhttp.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[strings.ToLower(in.Email)]
	s.mu.Unlock()

	sum := sha256.Sum256([]byte(in.Password))
	if !ok || subtle.ConstantTimeCompare(sum[:], acct.password[:]) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.issueSession(w, http.StatusOK, acct)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in authhttp.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[strings.ToLower(in.Email)]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "account already exists")
		return
	}
	s.addUserLocked(User{Email: in.Email, Password: in.Password, Name: in.Name, Role: in.Role})
	acct := s.accounts[strings.ToLower(in.Email)]
	s.mu.Unlock()

	s.issueSession(w, http.StatusCreated, acct)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if d := s.options.RefreshDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}

	if s.rejectRefresh.Load() {
		writeError(w, http.StatusUnauthorized, "refresh rejected")
		return
	}

	var in authhttp.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	sid, secret, err := refresh.Decode(in.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if !ok || sess.revoked {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "session not found")
		return
	}
	if !refresh.Matches(secret, sess.secretHash) {
		// A rotated-out secret came back: treat the session as stolen.
		sess.revoked = true
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "refresh token reused")
		return
	}
	next, err := refresh.NewSecret()
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	sess.secretHash = refresh.HashSecret(next)
	acct := s.accountByIDLocked(sess.userID)
	s.mu.Unlock()

	if acct == nil {
		writeError(w, http.StatusUnauthorized, "account not found")
		return
	}

	resp, err := s.tokenResponse(acct, sid, next)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp.User = nil
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var in authhttp.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err == nil {
		if sid, secret, err := refresh.Decode(in.RefreshToken); err == nil {
			s.mu.Lock()
			if sess, ok := s.sessions[sid]; ok && refresh.Matches(secret, sess.secretHash) {
				sess.revoked = true
			}
			s.mu.Unlock()
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) issueSession(w http.ResponseWriter, status int, acct *account) {
	id, err := refresh.NewSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	secret, err := refresh.NewSecret()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	sid := id.String()
	s.mu.Lock()
	s.sessions[sid] = &refreshSession{userID: acct.id, secretHash: refresh.HashSecret(secret)}
	s.mu.Unlock()

	resp, err := s.tokenResponse(acct, sid, secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) tokenResponse(acct *account, sid string, secret refresh.Secret) (authhttp.TokenResponse, error) {
	access, exp, err := s.tokens.CreateAccess(jwt.Subject{
		UserID:    acct.id,
		OrgID:     acct.orgID,
		SessionID: sid,
		Role:      acct.role,
	})
	if err != nil {
		return authhttp.TokenResponse{}, err
	}
	refreshToken, err := refresh.Encode(sid, secret)
	if err != nil {
		return authhttp.TokenResponse{}, err
	}

	s.mu.Lock()
	s.live[access] = true
	s.mu.Unlock()

	return authhttp.TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresAt:    exp.Unix(),
		User: &authhttp.User{
			ID:    acct.id,
			OrgID: acct.orgID,
			Role:  acct.role,
			Email: acct.email,
			Name:  acct.name,
		},
	}, nil
}

func (s *Server) accountByIDLocked(id string) *account {
	for _, acct := range s.accounts {
		if acct.id == id {
			return acct
		}
	}
	return nil
}
