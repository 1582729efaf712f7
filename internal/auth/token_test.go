package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentdesk/incidentdesk/internal/model"
)

var testSecret = []byte("test-secret-key")

// fakeClock is a settable clock for expiry boundary tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenManager(t *testing.T, clock *fakeClock) *TokenManager {
	t.Helper()
	cfg := TokenConfig{Secret: testSecret, Algorithm: "HS256", TTL: 15 * time.Minute}
	if clock != nil {
		cfg.Now = clock.Now
	}
	m, err := NewTokenManager(cfg)
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_Validation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		cfg  TokenConfig
	}{
		{"empty secret", TokenConfig{Algorithm: "HS256", TTL: time.Minute}},
		{"zero ttl", TokenConfig{Secret: testSecret, Algorithm: "HS256"}},
		{"asymmetric algorithm", TokenConfig{Secret: testSecret, Algorithm: "RS256", TTL: time.Minute}},
		{"none algorithm", TokenConfig{Secret: testSecret, Algorithm: "none", TTL: time.Minute}},
		{"unknown algorithm", TokenConfig{Secret: testSecret, Algorithm: "XX999", TTL: time.Minute}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenManager(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestTokenManager_IssueAndVerify(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t, nil)

	token, err := m.Issue(42, "a@x.com", model.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	id, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id.UserID)
	assert.Equal(t, "a@x.com", id.Email)
	assert.Equal(t, model.RoleAdmin, id.Role)
	assert.NotEmpty(t, id.TokenID)
}

func TestTokenManager_WireClaims(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	m := newTestTokenManager(t, clock)

	token, err := m.Issue(7, "b@x.com", model.RoleRegular)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "7", claims["sub"])
	assert.Equal(t, "b@x.com", claims["email"])
	assert.Equal(t, "usuario", claims["rol"])
	assert.EqualValues(t, 1_700_000_000+15*60, claims["exp"])
}

func TestTokenManager_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, 0)
	clock := &fakeClock{t: issuedAt}
	m := newTestTokenManager(t, clock)

	ttl := 15 * time.Minute
	token, err := m.IssueWithTTL(1, "a@x.com", model.RoleRegular, ttl)
	require.NoError(t, err)

	clock.t = issuedAt.Add(ttl - time.Second)
	_, err = m.Verify(token)
	assert.NoError(t, err, "token should be valid one second before expiry")

	clock.t = issuedAt.Add(ttl)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token should be invalid exactly at expiry")

	clock.t = issuedAt.Add(ttl + time.Hour)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_ExpiryMidSecondIssue(t *testing.T) {
	t.Parallel()

	issuedAt := time.Unix(1_700_000_000, int64(700*time.Millisecond))
	clock := &fakeClock{t: issuedAt}
	m := newTestTokenManager(t, clock)

	ttl := 15 * time.Minute
	token, err := m.IssueWithTTL(1, "a@x.com", model.RoleRegular, ttl)
	require.NoError(t, err)

	// exp is stored in whole seconds, so it lands on 1_700_000_900.
	clock.t = issuedAt.Add(ttl - 800*time.Millisecond)
	_, err = m.Verify(token)
	assert.NoError(t, err)

	clock.t = issuedAt.Add(ttl - 700*time.Millisecond)
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "token expires at the truncated second")
}

func TestTokenManager_TamperedSignature(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t, nil)
	token, err := m.Issue(1, "a@x.com", model.RoleRegular)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])

	// Flip every position in turn; the first six bits of a char always matter.
	for i := 0; i < len(sig)-1; i++ {
		tampered := make([]byte, len(sig))
		copy(tampered, sig)
		if tampered[i] == 'A' {
			tampered[i] = 'B'
		} else {
			tampered[i] = 'A'
		}

		forged := parts[0] + "." + parts[1] + "." + string(tampered)
		_, err := m.Verify(forged)
		assert.ErrorIs(t, err, ErrInvalidToken, "tampered byte %d should fail verification", i)
	}
}

func TestTokenManager_TamperedPayload(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t, nil)
	token, err := m.Issue(1, "a@x.com", model.RoleRegular)
	require.NoError(t, err)

	// Re-sign an escalated payload with a different key.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("attacker-key"))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	forgedParts := strings.Split(forged, ".")
	spliced := parts[0] + "." + forgedParts[1] + "." + parts[2]

	_, err = m.Verify(spliced)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsMalformed(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t, nil)
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	sign := func(method jwt.SigningMethod, claims jwt.Claims, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	testCases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"two segments", "abc.def"},
		{"non numeric subject", sign(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "abc", ExpiresAt: exp},
		}, testSecret)},
		{"missing subject", sign(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
		}, testSecret)},
		{"missing expiry", sign(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
		}, testSecret)},
		{"different algorithm", sign(jwt.SigningMethodHS512, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp},
		}, testSecret)},
		{"alg none", sign(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp},
		}, jwt.UnsafeAllowNoneSignatureType)},
		{"wrong secret", sign(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "1", ExpiresAt: exp},
		}, []byte("other-secret"))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Verify(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManager_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	m := newTestTokenManager(t, nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, err := m.Issue(1, "a@x.com", model.RoleRegular)
		require.NoError(t, err)
		id, err := m.Verify(token)
		require.NoError(t, err)
		assert.False(t, seen[id.TokenID], "token id %s issued twice", id.TokenID)
		seen[id.TokenID] = true
	}
}
