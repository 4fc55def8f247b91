package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// minSecretLen is the shortest HMAC key NewManager accepts.
const minSecretLen = 16

// Config defines how a [Manager] mints and verifies access tokens.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL  time.Duration
	Secret     []byte
	Issuer     string
	Leeway     time.Duration
	RequireIAT bool
}

// Manager mints and verifies HS256 access tokens. It is safe for concurrent use.
type Manager struct {
	config Config
}

// Subject is the identity embedded in an access token.
type Subject struct {
	UserID    string
	OrgID     string
	SessionID string
	Role      string
}

// AccessClaims are the claims carried by access tokens minted by [Manager].
type AccessClaims struct {
	UID   string `json:"uid"`
	OrgID string `json:"org,omitempty"`
	SID   string `json:"sid"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretLen)
	}
	cfg.Secret = append([]byte(nil), cfg.Secret...)

	return &Manager{config: cfg}, nil
}

// TTL returns the configured access token lifetime.
func (j *Manager) TTL() time.Duration {
	return j.config.AccessTTL
}

// CreateAccess mints a signed access token for sub and returns it with its expiry.
func (j *Manager) CreateAccess(sub Subject) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.config.AccessTTL)

	claims := AccessClaims{
		UID:   sub.UserID,
		OrgID: sub.OrgID,
		SID:   sub.SessionID,
		Role:  sub.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   sub.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAccess verifies tokenStr and returns its claims.
//
// Only HS256 is accepted. Issuer and expiry (with leeway) are enforced, and iat is
// required when RequireIAT is set.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}

	claims := &AccessClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return j.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if j.config.RequireIAT && claims.IssuedAt == nil {
		return nil, errors.New("token has no iat claim")
	}
	return claims, nil
}
