package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/repository"
)

// fastParams keeps Argon2id cheap enough for unit tests.
var fastParams = auth.PasswordParams{Memory: 8 * 1024, Time: 1, Threads: 1}

type userFixture struct {
	svc     *UserService
	store   *repository.Memory
	hasher  *auth.Hasher
	tokens  *auth.TokenManager
	metrics *metrics.InMemoryRecorder
}

func newUserFixture(t *testing.T) *userFixture {
	t.Helper()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:    []byte("service-test-secret"),
		Algorithm: "HS256",
		TTL:       15 * time.Minute,
	})
	require.NoError(t, err)

	store := repository.NewMemory()
	hasher := auth.NewHasher(fastParams)
	recorder := metrics.NewInMemory()

	svc, err := NewUserService(store, hasher, tokens, nil, recorder)
	require.NoError(t, err)

	return &userFixture{svc: svc, store: store, hasher: hasher, tokens: tokens, metrics: recorder}
}
