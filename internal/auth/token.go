package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/incidentdesk/incidentdesk/internal/model"
)

// ErrInvalidToken is returned for every token verification failure:
// bad signature, malformed structure, wrong algorithm, expiry or bad subject.
var ErrInvalidToken = errors.New("invalid token")

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret    []byte
	Algorithm string // HS256, HS384 or HS512
	TTL       time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"rol"`
	jwt.RegisteredClaims
}

// Identity is the verified content of an access token.
type Identity struct {
	UserID    int64
	Email     string
	Role      model.Role
	TokenID   string
	ExpiresAt time.Time
}

// TokenManager issues and verifies signed, time-limited access tokens.
// It is immutable after construction and safe for concurrent use.
type TokenManager struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager validates cfg and returns a TokenManager.
func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}

	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", alg)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		secret: cfg.Secret,
		method: method,
		ttl:    cfg.TTL,
		now:    now,
	}, nil
}

// TTL returns the default token lifetime.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a token for the user with the default TTL.
func (m *TokenManager) Issue(userID int64, email string, role model.Role) (string, error) {
	return m.IssueWithTTL(userID, email, role, m.ttl)
}

// IssueWithTTL creates a token that expires ttl from now.
func (m *TokenManager) IssueWithTTL(userID int64, email string, role model.Role, ttl time.Duration) (string, error) {
	now := m.now()

	jti, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	claims := Claims{
		Email: email,
		Role:  role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			// NumericDate truncates to whole seconds.
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti.String(),
		},
	}

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns its identity.
// Any failure wraps ErrInvalidToken.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	return &Identity{
		UserID:    userID,
		Email:     claims.Email,
		Role:      model.Role(claims.Role),
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
