package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.BaseURL() + "/api/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status      string  `json:"status"`
		Timestamp   string  `json:"timestamp"`
		Environment string  `json:"environment"`
		Version     string  `json:"version"`
		Uptime      float64 `json:"uptime"`
		Memory      struct {
			SysMB uint64 `json:"sysMb"`
		} `json:"memory"`
	}
	decodeBody(t, resp, &body)

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Environment)
	assert.Equal(t, "0.0.0-test", body.Version)
	assert.NotEmpty(t, body.Timestamp)
}

func TestHealthEndpoint_methodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	resp := postJSON(t, s.BaseURL()+"/api/health", map[string]string{}, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &body)
	assert.NotEmpty(t, body.Error)
}

func TestPDFEndpoint(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Store.Set(ctx, "subjects/s1", map[string]interface{}{"name": "Polity"}))
	require.NoError(t, s.Store.Set(ctx, "subjects/s1/pdfs/p1", map[string]interface{}{
		"filename": "indian-polity_notes.pdf", "uploadedAt": t1,
	}))
	require.NoError(t, s.Store.Set(ctx, "subjects/s1/pdfs/p2", map[string]interface{}{
		"filename": "laxmikanth-summary.pdf", "uploadedAt": t2,
	}))

	resp, err := http.Get(s.BaseURL() + "/api/pdf")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pdfs []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	decodeBody(t, resp, &pdfs)

	require.Len(t, pdfs, 2)
	assert.Equal(t, "p2", pdfs[0].ID, "newest upload first")
	assert.Equal(t, "Indian Polity Notes", pdfs[1].Title)
}

func TestPDFEndpoint_methodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	resp := postJSON(t, s.BaseURL()+"/api/pdf", map[string]string{}, "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	resp.Body.Close()
}

func TestOTPFlow_endToEnd(t *testing.T) {
	s := newTestServer(t)

	identityID, token := signIn(t, s, "9876543210")
	assert.NotEmpty(t, identityID)
	assert.NotEmpty(t, token)
}

func TestOTPFlow_wrongCode(t *testing.T) {
	s := newTestServer(t)

	resp := postJSON(t, s.BaseURL()+"/auth/request_otp", map[string]string{"phone_number": "9876543210"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, s.BaseURL()+"/auth/verify_otp", map[string]string{
		"phone_number": "9876543210",
		"otp":          "999999",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "invalid-verification-code", body.Code)
}

func TestOTPFlow_missingPhone(t *testing.T) {
	s := newTestServer(t)

	resp := postJSON(t, s.BaseURL()+"/auth/request_otp", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutes_requireToken(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.BaseURL() + "/api/profile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/planner", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProfileRoundTripOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	// Not saved yet.
	resp := doJSON(t, http.MethodGet, s.BaseURL()+"/api/profile/exists", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var exists struct {
		Exists bool `json:"exists"`
	}
	decodeBody(t, resp, &exists)
	assert.False(t, exists.Exists)

	profile := map[string]interface{}{
		"fullName":    "Asha Verma",
		"gender":      "Female",
		"dateOfBirth": "2000-04-12",
		"email":       "asha@example.com",
		"city":        "Lucknow",
		"state":       "Uttar Pradesh",
		"pincode":     "226001",
	}
	resp = postJSON(t, s.BaseURL()+"/api/profile", profile, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/profile", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		FullName          string `json:"fullName"`
		IsProfileComplete bool   `json:"isProfileComplete"`
	}
	decodeBody(t, resp, &got)
	assert.Equal(t, "Asha Verma", got.FullName)
	assert.True(t, got.IsProfileComplete)

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/profile/exists", nil, token)
	decodeBody(t, resp, &exists)
	assert.True(t, exists.Exists)
}

func TestProfileSave_validationErrors(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	resp := postJSON(t, s.BaseURL()+"/api/profile", map[string]interface{}{
		"fullName": "Asha Verma",
		// gender, dob, email, city, state all missing
	}, token)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &body)
	for _, field := range []string{"gender", "dateOfBirth", "email", "city", "state"} {
		assert.Contains(t, body.Errors, field)
	}
}

func TestProfileUpdate_rejectsUnknownFields(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	resp := doJSON(t, http.MethodPatch, s.BaseURL()+"/api/profile", map[string]interface{}{
		"isProfileComplete": false,
	}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields must be rejected at the boundary")
	resp.Body.Close()
}

func TestPlannerOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	resp := postJSON(t, s.BaseURL()+"/api/planner", map[string]interface{}{
		"title": "Revise polity",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodPatch, s.BaseURL()+"/api/planner/"+created.ID, map[string]interface{}{
		"done": true,
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/planner", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tasks []struct {
		ID     string                 `json:"id"`
		Fields map[string]interface{} `json:"fields"`
	}
	decodeBody(t, resp, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, created.ID, tasks[0].ID)
	assert.Equal(t, true, tasks[0].Fields["done"])

	resp = doJSON(t, http.MethodDelete, s.BaseURL()+"/api/planner/"+created.ID, nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Repeated delete still succeeds.
	resp = doJSON(t, http.MethodDelete, s.BaseURL()+"/api/planner/"+created.ID, nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/planner", nil, token)
	decodeBody(t, resp, &tasks)
	assert.Empty(t, tasks)
}

func TestNotesOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	require.NoError(t, s.Store.Set(context.Background(), "notes/n1", map[string]interface{}{
		"title": "Polity basics",
	}))

	resp := doJSON(t, http.MethodGet, s.BaseURL()+"/api/notes/n1", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var note map[string]interface{}
	decodeBody(t, resp, &note)
	assert.Equal(t, "n1", note["id"])
	assert.Equal(t, "Polity basics", note["title"])

	resp = doJSON(t, http.MethodGet, s.BaseURL()+"/api/notes/missing", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestSignOut(t *testing.T) {
	s := newTestServer(t)
	_, token := signIn(t, s, "9876543210")

	resp := postJSON(t, s.BaseURL()+"/auth/signout", nil, token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
