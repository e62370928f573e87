package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-linkrule/pkg/emailvalidator"
	idmerrors "github.com/tendant/simple-linkrule/pkg/errors"
	"github.com/tendant/simple-linkrule/pkg/linkflow"
	"github.com/tendant/simple-linkrule/pkg/store"
	"github.com/tendant/simple-linkrule/pkg/tokengenerator"
)

const (
	testSecret      = "test-secret-0123456789"
	testRedirectURL = "https://app.example.com/collect-email"
)

func setupRouter(t *testing.T, backend linkflow.Backend) http.Handler {
	t.Helper()
	issuer := tokengenerator.NewIssuer(tokengenerator.NewJwtTokenGenerator(testSecret, "test-issuer", "test-audience"))
	reconciler := linkflow.NewReconciler(linkflow.Config{RedirectURL: testRedirectURL}, backend, issuer, emailvalidator.New())

	r := chi.NewRouter()
	r.Route("/api/linkrule", NewHandler(reconciler).RegisterRoutes)
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, router http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAuthenticate_IssuesToken(t *testing.T) {
	repo := store.NewInMemoryRepository()
	router := setupRouter(t, repo)

	rr := postJSON(t, router, "/api/linkrule/authenticate", `{"external_id":"auth0|1","email":"jane@example.com"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "auth0|1", resp.User.ExternalID)
	assert.Equal(t, "jane@example.com", resp.User.Email)

	tokenString := resp.IDToken[linkflow.DefaultTokenClaim]
	require.NotEmpty(t, tokenString)

	users := repo.ListUsers()
	require.Len(t, users, 1)

	claims := &tokengenerator.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, users[0].ID, claims.Subject)

	// a returning login reuses the link
	rr = postJSON(t, router, "/api/linkrule/authenticate", `{"external_id":"auth0|1"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, repo.ListUsers(), 1)
	assert.Len(t, repo.ListLinks(), 1)
}

func TestAuthenticate_RedirectsWithoutEmail(t *testing.T) {
	repo := store.NewInMemoryRepository()
	router := setupRouter(t, repo)

	rr := postJSON(t, router, "/api/linkrule/authenticate", `{"external_id":"twitter|2"}`)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testRedirectURL, rr.Header().Get("Location"))

	var resp RedirectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, testRedirectURL, resp.RedirectURL)
	assert.Equal(t, "twitter|2", resp.User.ExternalID)
	assert.Empty(t, repo.ListUsers())
}

func TestContinue(t *testing.T) {
	repo := store.NewInMemoryRepository()
	router := setupRouter(t, repo)

	rr := postForm(t, router, "/api/linkrule/continue", url.Values{
		"external_id": {"twitter|2"},
		"email":       {"tweeter@example.com"},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "tweeter@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.IDToken[linkflow.DefaultTokenClaim])
	assert.Len(t, repo.ListLinks(), 1)
}

func TestContinue_InvalidEmail(t *testing.T) {
	repo := store.NewInMemoryRepository()
	router := setupRouter(t, repo)

	rr := postForm(t, router, "/api/linkrule/continue", url.Values{
		"external_id": {"twitter|2"},
		"email":       {"not-an-email"},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error)
	assert.Equal(t, "missing or invalid email address", resp.ErrorDescription)
	assert.Empty(t, repo.ListUsers())
}

func TestAuthenticate_BadRequests(t *testing.T) {
	router := setupRouter(t, store.NewInMemoryRepository())

	rr := postJSON(t, router, "/api/linkrule/authenticate", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = postJSON(t, router, "/api/linkrule/authenticate", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type unavailableBackend struct{}

func (unavailableBackend) FindLinkByExternalID(ctx context.Context, externalID string) (string, error) {
	return "", errors.New("connection refused")
}

func (unavailableBackend) FindUserByEmail(ctx context.Context, email string) (string, error) {
	return "", errors.New("connection refused")
}

func (unavailableBackend) CreateUser(ctx context.Context, email string) (string, error) {
	return "", errors.New("connection refused")
}

func (unavailableBackend) CreateLink(ctx context.Context, externalID, userID string) error {
	return errors.New("connection refused")
}

func TestAuthenticate_BackendFailure(t *testing.T) {
	router := setupRouter(t, unavailableBackend{})

	rr := postJSON(t, router, "/api/linkrule/authenticate", `{"external_id":"auth0|1","email":"a@example.com"}`)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "backend_error", resp.Error)
	assert.NotContains(t, resp.ErrorDescription, "connection refused")
}

func TestWriteError_StatusFromErrorCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "validation", err: idmerrors.ValidationFailed("missing or invalid email address"), wantStatus: http.StatusBadRequest, wantError: "validation_failed"},
		{name: "backend", err: idmerrors.Backend(errors.New("timeout"), "failed to issue token"), wantStatus: http.StatusBadGateway, wantError: "backend_error"},
		{name: "backend wrapping not found", err: idmerrors.Backend(idmerrors.NotFound("user", "u1"), "failed to link"), wantStatus: http.StatusBadGateway, wantError: "backend_error"},
		{name: "plain", err: errors.New("unexpected"), wantStatus: http.StatusInternalServerError, wantError: "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/authenticate", nil)
			rr := httptest.NewRecorder()
			writeError(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}
