// Package identity realizes the external identity provider contract: phone
// challenge issuance and confirmation, sign-out, and identity change
// notifications. Failures cross the package boundary only as classified
// errcode.AuthError values.
package identity

import (
	"context"

	"github.com/prepdesk/server/internal/model"
)

// Confirmation is the opaque handle for an in-flight verification attempt.
type Confirmation struct {
	ChallengeID string
	PhoneNumber string
}

// Provider drives phone verification against the identity backend.
type Provider interface {
	// IssueChallenge dispatches an out-of-band code to phone after the
	// human-verification check passes. Returns a confirmation handle.
	IssueChallenge(ctx context.Context, phone string, verifier CaptchaVerifier) (*Confirmation, error)

	// Confirm submits the code against a confirmation handle and returns
	// the verified identity.
	Confirm(ctx context.Context, confirmation *Confirmation, code string) (model.Identity, error)

	// SignOut invalidates the provider-side session for an identity.
	SignOut(ctx context.Context, identityID string) error

	// OnIdentityChange registers a callback invoked with the identity on
	// sign-in and nil on sign-out. The returned cancel is idempotent.
	OnIdentityChange(cb func(*model.Identity)) (cancel func())
}

// CaptchaVerifier is the anti-automation check required before a code can
// be dispatched.
type CaptchaVerifier interface {
	// Verify runs the challenge for the phone number.
	Verify(ctx context.Context, phone string) error

	// Clear tears the widget down so a fresh one can be constructed.
	Clear()
}

// VerifierFactory lazily builds a verifier bound to a UI anchor element id.
type VerifierFactory func(anchorID string) CaptchaVerifier

// Dispatcher delivers a one-time code out of band (SMS or voice).
type Dispatcher interface {
	Send(ctx context.Context, phone, code string) error
}
