package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/auth"
	"github.com/prepdesk/server/internal/identity"
	"github.com/prepdesk/server/internal/middleware"
)

// SessionFactory builds a fresh session manager for one client's
// verification flow.
type SessionFactory func() *auth.SessionManager

// sessionTTL bounds how long an idle per-phone session is kept. Entries
// are pruned on access, so abandoned request_otp calls cannot grow the
// map without bound; signing out of an evicted session still succeeds.
const sessionTTL = 10 * time.Minute

type sessionEntry struct {
	sm       *auth.SessionManager
	lastSeen time.Time
}

// AuthHandler handles authentication endpoints. Each phone number gets its
// own session manager so concurrent verification flows stay independent.
type AuthHandler struct {
	newSession      SessionFactory
	log             *zap.Logger
	ipLimiter       *middleware.RateLimiter
	verifyIPLimiter *middleware.RateLimiter
	now             func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(newSession SessionFactory, log *zap.Logger) *AuthHandler {
	// IP rate limiters: 10 per 10min for request_otp, 20 per 10min for
	// verify_otp (the per-phone limit lives in the identity provider).
	return &AuthHandler{
		newSession:      newSession,
		log:             log,
		ipLimiter:       middleware.NewRateLimiter(10*time.Minute, 10),
		verifyIPLimiter: middleware.NewRateLimiter(10*time.Minute, 20),
		now:             time.Now,
		sessions:        make(map[string]*sessionEntry),
	}
}

func (h *AuthHandler) session(phone string) *auth.SessionManager {
	h.mu.Lock()
	defer h.mu.Unlock()
	now := h.now()
	h.pruneLocked(now)
	if e, ok := h.sessions[phone]; ok {
		e.lastSeen = now
		return e.sm
	}
	sm := h.newSession()
	h.sessions[phone] = &sessionEntry{sm: sm, lastSeen: now}
	return sm
}

func (h *AuthHandler) lookupSession(phone string) (*auth.SessionManager, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.sessions[phone]
	if !ok {
		return nil, false
	}
	e.lastSeen = h.now()
	return e.sm, true
}

// pruneLocked drops sessions idle longer than sessionTTL. Callers hold mu.
func (h *AuthHandler) pruneLocked(now time.Time) {
	for phone, e := range h.sessions {
		if now.Sub(e.lastSeen) > sessionTTL {
			delete(h.sessions, phone)
		}
	}
}

func (h *AuthHandler) dropSession(phone string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, phone)
}

// requestOTPRequest is the request body for POST /auth/request_otp
type requestOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	AnchorID    string `json:"anchor_id"`
}

// verifyOTPRequest is the request body for POST /auth/verify_otp
type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	OTP         string `json:"otp"`
}

// verifyOTPResponse is the JSON response for verify_otp
type verifyOTPResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        userResponse `json:"user"`
}

// userResponse is the identity object in API responses
type userResponse struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}

// HandleRequestOTP handles POST /auth/request_otp
func (h *AuthHandler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if req.PhoneNumber == "" {
		respondWithError(w, http.StatusBadRequest, "phone_number is required")
		return
	}
	if req.AnchorID == "" {
		req.AnchorID = "otp-anchor"
	}

	if !h.ipLimiter.Allow(middleware.IPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	normalized := auth.NormalizePhone(req.PhoneNumber)
	sm := h.session(normalized)

	if err := sm.IssueChallenge(r.Context(), req.PhoneNumber, req.AnchorID); err != nil {
		h.log.Warn("otp request failed",
			zap.String("phone", identity.MaskPhone(normalized)),
			zap.Error(err))
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "otp_sent"})
}

// HandleVerifyOTP handles POST /auth/verify_otp
func (h *AuthHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.OTP = strings.TrimSpace(req.OTP)
	if req.PhoneNumber == "" || req.OTP == "" {
		respondWithError(w, http.StatusBadRequest, "phone_number and otp are required")
		return
	}

	if !h.verifyIPLimiter.Allow(middleware.IPKey(r)) {
		respondWithError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	normalized := auth.NormalizePhone(req.PhoneNumber)
	sm, ok := h.lookupSession(normalized)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "no pending verification for this phone")
		return
	}

	session, err := sm.ConfirmChallenge(r.Context(), req.OTP)
	if err != nil {
		h.log.Warn("otp verification failed",
			zap.String("phone", identity.MaskPhone(normalized)),
			zap.Error(err))
		respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, verifyOTPResponse{
		AccessToken: session.Token,
		TokenType:   "bearer",
		User: userResponse{
			ID:          session.Identity.ID,
			PhoneNumber: session.Identity.PhoneNumber,
		},
	})
}

// HandleSignOut handles POST /auth/signout (protected)
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	phone, _ := middleware.GetPhoneNumber(r.Context())

	if sm, ok := h.lookupSession(phone); ok {
		if err := sm.SignOut(r.Context()); err != nil {
			respondAuthError(w, err)
			return
		}
		h.dropSession(phone)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}
