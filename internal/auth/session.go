// Package auth owns the phone verification state machine and the profile
// rules built on top of it. Every public operation returns either a payload
// or a classified error; raw provider failures never cross this boundary.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/identity"
	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/repo"
)

// defaultCountryCode is prefixed to bare 10-digit numbers.
const defaultCountryCode = "+91"

// State is the verification state of a session.
type State int

const (
	StateIdle State = iota
	StateChallengeIssued
	StateVerified
)

// Session is the result of a successful confirmation.
type Session struct {
	Identity model.Identity
	Token    string
}

// ProfileExistence is the degraded-failure result of a profile lookup:
// errors collapse to non-existence plus a diagnostic string.
type ProfileExistence struct {
	Exists  bool
	Profile *model.Profile
	Err     string
}

// ValidationResult maps offending field names to user-facing messages.
type ValidationResult struct {
	Valid  bool
	Errors map[string]string
}

// SessionManager drives phone verification to completion and exposes the
// resulting identity. It is constructed explicitly and injected; there is
// no package-level singleton.
type SessionManager struct {
	provider        identity.Provider
	verifierFactory identity.VerifierFactory
	profiles        repo.ProfileRepo
	jwt             *JWTService
	log             *zap.Logger

	mu           sync.Mutex
	state        State
	verifier     identity.CaptchaVerifier
	confirmation *identity.Confirmation
	current      *model.Identity
}

// NewSessionManager creates a session manager in the idle state.
func NewSessionManager(
	provider identity.Provider,
	verifierFactory identity.VerifierFactory,
	profiles repo.ProfileRepo,
	jwt *JWTService,
	log *zap.Logger,
) *SessionManager {
	return &SessionManager{
		provider:        provider,
		verifierFactory: verifierFactory,
		profiles:        profiles,
		jwt:             jwt,
		log:             log,
		state:           StateIdle,
	}
}

// State returns the current verification state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentIdentity returns the verified identity, if any.
func (m *SessionManager) CurrentIdentity() *model.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// NormalizePhone strips non-digits and prefixes the country code to bare
// 10-digit numbers. Numbers already carrying a leading "+" pass through
// unchanged.
func NormalizePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 10 {
		return defaultCountryCode + digits.String()
	}
	return trimmed
}

// IssueChallenge normalizes the phone number, lazily constructs the
// human-verification handle bound to anchorID, and asks the provider to
// dispatch a code. On failure the handle is discarded so the next attempt
// re-creates it, the session falls back to idle, and the classified error
// is returned.
func (m *SessionManager) IssueChallenge(ctx context.Context, phone, anchorID string) error {
	normalized := NormalizePhone(phone)

	m.mu.Lock()
	if m.verifier == nil {
		m.verifier = m.verifierFactory(anchorID)
	}
	verifier := m.verifier
	m.mu.Unlock()

	confirmation, err := m.provider.IssueChallenge(ctx, normalized, verifier)
	if err != nil {
		m.mu.Lock()
		if m.verifier != nil {
			m.verifier.Clear()
			m.verifier = nil
		}
		// Any previously issued challenge is dead: the provider consumes
		// it before dispatching a new one. Back to idle.
		m.confirmation = nil
		m.state = StateIdle
		m.mu.Unlock()

		m.log.Warn("challenge issuance failed",
			zap.String("phone", identity.MaskPhone(normalized)),
			zap.Error(err))
		return classifyAuthErr(err)
	}

	m.mu.Lock()
	m.confirmation = confirmation
	m.state = StateChallengeIssued
	m.mu.Unlock()
	return nil
}

// ConfirmChallenge submits the code against the pending challenge. Success
// transitions to the verified state and returns a session with an access
// token; failure returns a classified error without mutating session state.
func (m *SessionManager) ConfirmChallenge(ctx context.Context, code string) (Session, error) {
	m.mu.Lock()
	confirmation := m.confirmation
	m.mu.Unlock()

	if confirmation == nil {
		return Session{}, errcode.NewAuthError("invalid-verification-id")
	}

	id, err := m.provider.Confirm(ctx, confirmation, strings.TrimSpace(code))
	if err != nil {
		return Session{}, classifyAuthErr(err)
	}

	token, err := m.jwt.SignAccessToken(id.ID, id.PhoneNumber)
	if err != nil {
		m.log.Error("access token signing failed", zap.Error(err))
		return Session{}, errcode.NewAuthError("internal-error")
	}

	m.mu.Lock()
	m.current = &id
	m.confirmation = nil
	m.state = StateVerified
	m.mu.Unlock()

	return Session{Identity: id, Token: token}, nil
}

// CheckProfileExists looks up the profile for an identity id. Failures
// degrade to "does not exist" plus an error string; it never returns a
// Go error to the caller.
func (m *SessionManager) CheckProfileExists(ctx context.Context, identityID string) ProfileExistence {
	profile, err := m.profiles.Get(ctx, identityID)
	if err != nil {
		var dataErr *errcode.DataError
		if errors.As(err, &dataErr) && dataErr.Code == "not-found" {
			return ProfileExistence{Exists: false}
		}
		m.log.Warn("profile existence check failed",
			zap.String("identity", identityID), zap.Error(err))
		return ProfileExistence{Exists: false, Err: err.Error()}
	}
	return ProfileExistence{Exists: true, Profile: &profile}
}

// SaveProfile validates and writes the full profile document.
func (m *SessionManager) SaveProfile(ctx context.Context, identityID string, profile model.Profile) (ValidationResult, error) {
	result := ValidateProfile(profile)
	if !result.Valid {
		return result, nil
	}
	if err := m.profiles.Save(ctx, identityID, profile); err != nil {
		return result, err
	}
	return result, nil
}

// UpdateProfile merges a partial update into the existing profile.
func (m *SessionManager) UpdateProfile(ctx context.Context, identityID string, update model.ProfileUpdate) error {
	return m.profiles.Update(ctx, identityID, update)
}

// GetProfile retrieves the profile; a missing profile is a typed not-found.
func (m *SessionManager) GetProfile(ctx context.Context, identityID string) (model.Profile, error) {
	return m.profiles.Get(ctx, identityID)
}

// SignOut invalidates the provider session and clears local state.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	identityID := ""
	if current != nil {
		identityID = current.ID
	}
	if err := m.provider.SignOut(ctx, identityID); err != nil {
		return classifyAuthErr(err)
	}

	m.mu.Lock()
	m.current = nil
	m.confirmation = nil
	if m.verifier != nil {
		m.verifier.Clear()
		m.verifier = nil
	}
	m.state = StateIdle
	m.mu.Unlock()
	return nil
}

// OnIdentityChange registers an identity change listener with the provider.
func (m *SessionManager) OnIdentityChange(cb func(*model.Identity)) (cancel func()) {
	return m.provider.OnIdentityChange(cb)
}

// classifyAuthErr passes typed auth errors through and wraps anything else
// in the generic fallback so raw provider detail never escapes.
func classifyAuthErr(err error) error {
	var authErr *errcode.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return errcode.NewAuthError("internal-error")
}
