package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incidentdesk/incidentdesk/internal/auth"
	"github.com/incidentdesk/incidentdesk/internal/handler/dto"
	"github.com/incidentdesk/incidentdesk/internal/metrics"
	"github.com/incidentdesk/incidentdesk/internal/middleware"
	"github.com/incidentdesk/incidentdesk/internal/model"
	"github.com/incidentdesk/incidentdesk/internal/repository"
	"github.com/incidentdesk/incidentdesk/internal/service"
)

type apiFixture struct {
	router  http.Handler
	store   *repository.Memory
	metrics *metrics.InMemoryRecorder
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewMemory()
	recorder := metrics.NewInMemory()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:    []byte("handler-test-secret"),
		Algorithm: "HS256",
		TTL:       15 * time.Minute,
	})
	require.NoError(t, err)

	hasher := auth.NewHasher(auth.PasswordParams{Memory: 8 * 1024, Time: 1, Threads: 1})
	userSvc, err := service.NewUserService(store, hasher, tokens, logger, recorder)
	require.NoError(t, err)
	incidentSvc := service.NewIncidentService(store, recorder)

	router := NewRouter(RouterConfig{
		Logger:      logger,
		Metrics:     recorder,
		Snapshots:   recorder,
		Gate:        auth.NewGate(tokens, store),
		Users:       NewUserHandler(userSvc, logger),
		Incidents:   NewIncidentHandler(incidentSvc, logger),
		Health:      NewHealthHandler(store, logger),
		Security:    middleware.SecurityConfig{IsDevelopment: true},
		CORS:        middleware.DefaultCORSConfig(),
		MaxBodySize: 4096,
	})

	return &apiFixture{router: router, store: store, metrics: recorder}
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) login(t *testing.T, email, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) register(t *testing.T, email, password, role string) dto.UserResponse {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/register", "", dto.RegisterRequest{Email: email, Password: password, Role: role})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user dto.UserResponse
	decodeBody(t, rec, &user)
	return user
}

func (f *apiFixture) token(t *testing.T, email, password string) string {
	t.Helper()

	rec := f.login(t, email, password)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok dto.TokenResponse
	decodeBody(t, rec, &tok)
	return tok.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAPI_IncidentLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	user := f.register(t, "a@x.io", "secret123", "")
	assert.Equal(t, "usuario", user.Role)
	assert.Equal(t, "a@x.io", user.Email)

	rec := f.login(t, "a@x.io", "wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	userToken := f.token(t, "a@x.io", "secret123")

	rec = f.do(t, http.MethodGet, "/me", userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me dto.UserResponse
	decodeBody(t, rec, &me)
	assert.Equal(t, user.ID, me.ID)

	rec = f.do(t, http.MethodPost, "/incidentes", userToken, map[string]any{"titulo": "Caida del servidor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dto.IncidentResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, "ABIERTO", created.Status)
	assert.Nil(t, created.UpdatedAt)
	assert.Nil(t, created.Description)

	path := "/incidentes/" + itoa(created.ID)

	rec = f.do(t, http.MethodPut, path, userToken, map[string]any{"estado": "EN_PROCESO"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dto.IncidentResponse
	decodeBody(t, rec, &updated)
	assert.Equal(t, "EN_PROCESO", updated.Status)
	assert.Equal(t, "Caida del servidor", updated.Title)
	assert.NotNil(t, updated.UpdatedAt)

	rec = f.do(t, http.MethodDelete, path, userToken, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	f.register(t, "root@x.io", "supersecret", "admin")
	adminToken := f.token(t, "root@x.io", "supersecret")

	rec = f.do(t, http.MethodDelete, path, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = f.do(t, http.MethodGet, path, userToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, path, adminToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	snap := f.metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.IncidentsCreated)
	assert.Equal(t, uint64(1), snap.IncidentsUpdated)
	assert.Equal(t, uint64(1), snap.IncidentsDeleted)
	assert.Equal(t, uint64(1), snap.AuthForbidden)
}

func TestAPI_Register(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("unknown role falls back to usuario", func(t *testing.T) {
		user := f.register(t, "lenient@x.io", "secret123", "superuser")
		assert.Equal(t, "usuario", user.Role)
	})

	t.Run("duplicate email is 400", func(t *testing.T) {
		f.register(t, "dup@x.io", "secret123", "")
		rec := f.do(t, http.MethodPost, "/register", "", dto.RegisterRequest{Email: "dup@x.io", Password: "secret456"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "EMAIL_TAKEN", body.Code)
	})

	t.Run("validation errors are 422 with details", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/register", "", dto.RegisterRequest{Email: "not-an-email", Password: "short"})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)

		fields := make([]string, 0, len(body.Details))
		for _, d := range body.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"email", "password"}, fields)
	})

	t.Run("malformed JSON is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/register", "", `{"email":`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "INVALID_JSON", body.Code)
	})

	t.Run("wrong JSON type is 422", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/register", "", `{"email": 12, "password": "secret123"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("oversized body is 413", func(t *testing.T) {
		big := `{"email":"big@x.io","password":"` + strings.Repeat("a", 8192) + `"}`
		rec := f.do(t, http.MethodPost, "/register", "", big)
		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestAPI_Login(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "login@x.io", "secret123", "")

	t.Run("token type is bearer", func(t *testing.T) {
		rec := f.login(t, "login@x.io", "secret123")
		require.Equal(t, http.StatusOK, rec.Code)

		var tok dto.TokenResponse
		decodeBody(t, rec, &tok)
		assert.Equal(t, "bearer", tok.TokenType)
		assert.NotEmpty(t, tok.AccessToken)
	})

	t.Run("unknown email and wrong password look the same", func(t *testing.T) {
		unknown := f.login(t, "ghost@x.io", "secret123")
		wrong := f.login(t, "login@x.io", "secret124")

		require.Equal(t, http.StatusUnauthorized, unknown.Code)
		require.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, unknown.Body.String(), wrong.Body.String())
	})

	t.Run("email is case sensitive", func(t *testing.T) {
		rec := f.login(t, "LOGIN@x.io", "secret123")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields are 422", func(t *testing.T) {
		rec := f.login(t, "", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Len(t, body.Details, 2)
	})
}

func TestAPI_Me(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "me@x.io", "secret123", "")
	f.register(t, "other@x.io", "secret123", "")
	token := f.token(t, "me@x.io", "secret123")

	t.Run("requires a token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("garbage token is 401", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/me", "not.a.jwt", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("email taken by another user is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/me", token, map[string]any{"email": "other@x.io"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password too long is 422", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/me", token, map[string]any{"password": strings.Repeat("p", 129)})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("password change takes effect", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/me", token, map[string]any{"password": "newsecret1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, http.StatusUnauthorized, f.login(t, "me@x.io", "secret123").Code)
		assert.Equal(t, http.StatusOK, f.login(t, "me@x.io", "newsecret1").Code)
	})

	t.Run("vanished user is 401", func(t *testing.T) {
		f.register(t, "gone@x.io", "secret123", "")
		goneToken := f.token(t, "gone@x.io", "secret123")

		user, err := f.store.GetUserByEmail(context.Background(), "gone@x.io")
		require.NoError(t, err)
		f.store.DeleteUser(user.ID)

		rec := f.do(t, http.MethodGet, "/me", goneToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPI_AdminPing(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "user@x.io", "secret123", "")
	f.register(t, "admin@x.io", "secret123", "admin")

	rec := f.do(t, http.MethodGet, "/admin/ping", f.token(t, "user@x.io", "secret123"), nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/ping", f.token(t, "admin@x.io", "secret123"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body dto.AdminPingResponse
	decodeBody(t, rec, &body)
	assert.True(t, body.OK)
	assert.Equal(t, "Hola, admin", body.Msg)
}

func TestAPI_RoleReadFromStore(t *testing.T) {
	f := newAPIFixture(t)
	user := f.register(t, "promo@x.io", "secret123", "")
	token := f.token(t, "promo@x.io", "secret123")

	require.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/admin/ping", token, nil).Code)

	require.NoError(t, f.store.UpdateUserRole(context.Background(), user.ID, model.RoleAdmin))

	// The token still says usuario; the stored role wins.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/admin/ping", token, nil).Code)
}

func TestAPI_Incidents(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "inc@x.io", "secret123", "")
	token := f.token(t, "inc@x.io", "secret123")

	t.Run("list is empty array", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/incidentes", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, "[]", rec.Body.String())
	})

	t.Run("trailing slash is accepted", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/incidentes/", token, map[string]any{
			"titulo":      "Fuga de datos",
			"descripcion": "Bucket publico",
			"estado":      "CERRADO",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = f.do(t, http.MethodGet, "/incidentes/", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var list []dto.IncidentResponse
		decodeBody(t, rec, &list)
		require.Len(t, list, 1)
		assert.Equal(t, "CERRADO", list[0].Status)
		require.NotNil(t, list[0].Description)
		assert.Equal(t, "Bucket publico", *list[0].Description)
	})

	t.Run("invalid input is 422", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/incidentes", token, map[string]any{
			"titulo": "   ",
			"estado": "RESUELTO",
		})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		fields := make([]string, 0, len(body.Details))
		for _, d := range body.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"titulo", "estado"}, fields)
	})

	t.Run("trailing data after the body is 400", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/incidentes", token, `{"titulo":"x"} junk`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body dto.ErrorResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "INVALID_JSON", body.Code)
	})

	t.Run("title over 150 characters is 422", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/incidentes", token, map[string]any{"titulo": strings.Repeat("t", 151)})
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("non numeric id is 422", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/incidentes/abc", token, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("update of missing incident is 404", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/incidentes/999", token, map[string]any{"titulo": "x"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("null fields are left unchanged", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/incidentes", token, map[string]any{"titulo": "Original", "descripcion": "d"})
		require.Equal(t, http.StatusCreated, rec.Code)
		var created dto.IncidentResponse
		decodeBody(t, rec, &created)

		rec = f.do(t, http.MethodPut, "/incidentes/"+itoa(created.ID), token, `{"titulo": null, "descripcion": null}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var got dto.IncidentResponse
		decodeBody(t, rec, &got)
		assert.Equal(t, "Original", got.Title)
		require.NotNil(t, got.Description)
		assert.Equal(t, "d", *got.Description)
		assert.Nil(t, got.UpdatedAt)
	})

	t.Run("requires a token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/incidentes", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAPI_HealthEndpoints(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	f.register(t, "m@x.io", "secret123", "")
	rec = f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "incidentdesk_users_registered_total 1")

	rec = f.do(t, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/health", "", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAPI_CORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/incidentes", nil)
	req.Header.Set("Origin", "http://localhost:8100")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:8100", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
