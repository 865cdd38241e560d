// Package errcode translates provider error codes into user-safe messages.
// Two parallel taxonomies exist: auth errors raised during phone verification
// and data errors raised by the document store. Unknown codes fall back to a
// generic sentence so raw provider detail never reaches a user.
package errcode

import "strings"

// Generic fallbacks for codes not in the tables.
const (
	GenericAuthMessage = "Something went wrong. Please try again."
	GenericDataMessage = "Unable to complete the request. Please try again."
	NetworkMessage     = "Network error. Please check your connection and try again."
)

// authMessages maps provider auth error codes to user-safe sentences.
var authMessages = map[string]string{
	"invalid-phone-number":     "The phone number entered is invalid. Please check and try again.",
	"missing-phone-number":     "Please enter a phone number.",
	"quota-exceeded":           "SMS quota exceeded. Please try again later.",
	"user-disabled":            "This account has been disabled. Please contact support.",
	"operation-not-allowed":    "Phone sign-in is not enabled. Please contact support.",
	"too-many-requests":        "Too many attempts. Please wait a while before trying again.",
	"invalid-verification-code": "The code entered is incorrect. Please check and try again.",
	"invalid-verification-id":  "This verification session is no longer valid. Please request a new code.",
	"code-expired":             "The code has expired. Please request a new one.",
	"captcha-check-failed":     "Verification check failed. Please refresh and try again.",
	"network-request-failed":   NetworkMessage,
	"session-expired":          "Your session has expired. Please sign in again.",
}

// dataMessages maps document store error codes to user-safe sentences.
var dataMessages = map[string]string{
	"permission-denied":   "You do not have permission to perform this action.",
	"unavailable":         "The service is temporarily unavailable. Please try again shortly.",
	"not-found":           "The requested record was not found.",
	"already-exists":      "This record already exists.",
	"failed-precondition": "The request cannot be completed in the current state.",
}

// AuthMessage returns the user-safe message for a provider auth error code,
// or the generic fallback for unknown codes.
func AuthMessage(code string) string {
	if msg, ok := authMessages[code]; ok {
		return msg
	}
	return GenericAuthMessage
}

// DataMessage returns the user-safe message for a document store error code.
// Network-shaped raw messages map to the connectivity message; everything
// else unknown falls back to the generic data message.
func DataMessage(code, raw string) string {
	if msg, ok := dataMessages[code]; ok {
		return msg
	}
	lower := strings.ToLower(raw)
	if strings.Contains(lower, "network") || strings.Contains(lower, "fetch") {
		return NetworkMessage
	}
	return GenericDataMessage
}

// AuthError is a classified phone-verification failure
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// NewAuthError classifies a provider auth code into a typed error.
func NewAuthError(code string) *AuthError {
	return &AuthError{Code: code, Message: AuthMessage(code)}
}

// DataError is a classified document store failure
type DataError struct {
	Code    string
	Message string
}

func (e *DataError) Error() string { return e.Message }

// NewDataError classifies a store code and raw message into a typed error.
func NewDataError(code, raw string) *DataError {
	return &DataError{Code: code, Message: DataMessage(code, raw)}
}
