package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/auth"
	httphandler "github.com/prepdesk/server/internal/http"
	"github.com/prepdesk/server/internal/http/handlers"
	"github.com/prepdesk/server/internal/identity"
	"github.com/prepdesk/server/internal/repo"
	"github.com/prepdesk/server/internal/store/memstore"
)

// testServer wires the full stack over the in-memory store.
type testServer struct {
	Server *httptest.Server
	Store  *memstore.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zap.NewNop()
	docStore := memstore.New()

	provider := identity.NewOtpProvider(docStore, identity.NewLogDispatcher(logger), "test-otp-salt", true, logger)
	verifierFactory := identity.NewInvisibleVerifierFactory(logger)

	profileRepo := repo.NewProfileRepo(docStore)
	notesRepo := repo.NewNotesRepo(docStore, logger)
	plannerRepo := repo.NewPlannerRepo(docStore, logger)

	jwtService := auth.NewJWTService("test-jwt-secret-at-least-32-characters-long")
	newSession := func() *auth.SessionManager {
		return auth.NewSessionManager(provider, verifierFactory, profileRepo, jwtService, logger)
	}

	router := httphandler.NewRouter(
		handlers.NewAuthHandler(newSession, logger),
		handlers.NewProfileHandler(newSession(), logger),
		handlers.NewPlannerHandler(plannerRepo),
		handlers.NewNotesHandler(notesRepo),
		handlers.NewPDFHandler(notesRepo, logger),
		handlers.NewHealthHandler("test", "0.0.0-test"),
		jwtService,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{Server: server, Store: docStore}
}

func (s *testServer) BaseURL() string { return s.Server.URL }

// postJSON sends a JSON POST and returns the response.
func postJSON(t *testing.T, url string, body interface{}, token string) *http.Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, body, token)
}

func doJSON(t *testing.T, method, url string, body interface{}, token string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// signIn runs the full OTP flow and returns the identity id and token.
func signIn(t *testing.T, s *testServer, phone string) (identityID, token string) {
	t.Helper()

	resp := postJSON(t, s.BaseURL()+"/auth/request_otp", map[string]string{"phone_number": phone}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, s.BaseURL()+"/auth/verify_otp", map[string]string{
		"phone_number": phone,
		"otp":          "123456",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verified struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decodeBody(t, resp, &verified)
	require.NotEmpty(t, verified.AccessToken)
	require.NotEmpty(t, verified.User.ID)
	return verified.User.ID, verified.AccessToken
}
