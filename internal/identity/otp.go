package identity

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prepdesk/server/internal/errcode"
	"github.com/prepdesk/server/internal/model"
	"github.com/prepdesk/server/internal/store"
)

const (
	otpLength            = 6
	otpExpiry            = 5 * time.Minute
	maxAttempts          = 5
	minAttemptDelay      = 2 * time.Second
	requestWindow        = 10 * time.Minute
	maxRequestsPerWindow = 3

	devCode = "123456"

	challengeCollection = "otp_challenges"
	identityCollection  = "identities"
)

// OtpProvider implements Provider with document-store-backed challenge
// sessions. Only a salted hash of the code is ever persisted.
type OtpProvider struct {
	store      store.DocumentStore
	dispatcher Dispatcher
	salt       string
	devMode    bool
	log        *zap.Logger

	mu        sync.Mutex
	listeners map[int]func(*model.Identity)
	nextID    int
}

// NewOtpProvider creates an OTP-backed identity provider. In devMode the
// dispatched code is always the fixed development code.
func NewOtpProvider(s store.DocumentStore, dispatcher Dispatcher, salt string, devMode bool, log *zap.Logger) *OtpProvider {
	return &OtpProvider{
		store:      s,
		dispatcher: dispatcher,
		salt:       salt,
		devMode:    devMode,
		log:        log,
		listeners:  make(map[int]func(*model.Identity)),
	}
}

// IssueChallenge runs the captcha check, rate limits per phone (max 3
// requests per 10 minutes), invalidates any previous active challenge, and
// dispatches a fresh code.
func (p *OtpProvider) IssueChallenge(ctx context.Context, phone string, verifier CaptchaVerifier) (*Confirmation, error) {
	if !strings.HasPrefix(phone, "+") || len(phone) < 8 {
		return nil, errcode.NewAuthError("invalid-phone-number")
	}

	if verifier != nil {
		if err := verifier.Verify(ctx, phone); err != nil {
			return nil, errcode.NewAuthError("captcha-check-failed")
		}
	}

	recent, err := p.countRecentRequests(ctx, phone, time.Now().Add(-requestWindow))
	if err != nil {
		p.log.Error("challenge rate limit check failed", zap.Error(err))
		return nil, errcode.NewAuthError("internal-error")
	}
	if recent >= maxRequestsPerWindow {
		return nil, errcode.NewAuthError("too-many-requests")
	}

	if err := p.consumeActiveChallenges(ctx, phone); err != nil {
		p.log.Error("consume active challenges failed", zap.Error(err))
		return nil, errcode.NewAuthError("internal-error")
	}

	code := devCode
	if !p.devMode {
		code = generateCode()
	}

	id := uuid.NewString()
	err = p.store.Set(ctx, challengeCollection+"/"+id, map[string]interface{}{
		"phoneNumber":  phone,
		"codeHash":     hashCodeHex(phone, code, p.salt),
		"expiresAt":    time.Now().Add(otpExpiry),
		"createdAt":    store.ServerTimestamp,
		"attemptCount": 0,
	})
	if err != nil {
		p.log.Error("persist challenge failed", zap.Error(err))
		return nil, errcode.NewAuthError("internal-error")
	}

	if err := p.dispatcher.Send(ctx, phone, code); err != nil {
		p.log.Error("code dispatch failed", zap.String("phone", MaskPhone(phone)), zap.Error(err))
		return nil, errcode.NewAuthError("quota-exceeded")
	}

	return &Confirmation{ChallengeID: id, PhoneNumber: phone}, nil
}

// Confirm verifies the code against the challenge: expiry, attempt cap,
// minimum delay between attempts, then constant-time hash comparison.
// On success the challenge is consumed and a per-phone identity is
// resolved or created.
func (p *OtpProvider) Confirm(ctx context.Context, confirmation *Confirmation, code string) (model.Identity, error) {
	if confirmation == nil || confirmation.ChallengeID == "" {
		return model.Identity{}, errcode.NewAuthError("invalid-verification-id")
	}

	path := challengeCollection + "/" + confirmation.ChallengeID
	doc, err := p.store.Get(ctx, path)
	if err != nil {
		return model.Identity{}, errcode.NewAuthError("invalid-verification-id")
	}

	ch := challengeFromDoc(doc)
	now := time.Now()

	if ch.ConsumedAt != nil || now.After(ch.ExpiresAt) {
		return model.Identity{}, errcode.NewAuthError("code-expired")
	}
	if ch.LastAttemptAt != nil && now.Sub(*ch.LastAttemptAt) < minAttemptDelay {
		return model.Identity{}, errcode.NewAuthError("too-many-requests")
	}

	newCount := ch.AttemptCount + 1
	if err := p.store.Update(ctx, path, map[string]interface{}{
		"attemptCount":  newCount,
		"lastAttemptAt": now,
	}); err != nil {
		p.log.Error("record attempt failed", zap.Error(err))
		return model.Identity{}, errcode.NewAuthError("internal-error")
	}
	if newCount >= maxAttempts {
		_ = p.store.Update(ctx, path, map[string]interface{}{"consumedAt": now})
		return model.Identity{}, errcode.NewAuthError("too-many-requests")
	}

	provided := hashCodeBytes(confirmation.PhoneNumber, code, p.salt)
	if subtle.ConstantTimeCompare(provided, ch.CodeHash) != 1 {
		return model.Identity{}, errcode.NewAuthError("invalid-verification-code")
	}

	if err := p.store.Update(ctx, path, map[string]interface{}{"consumedAt": now}); err != nil {
		p.log.Error("consume challenge failed", zap.Error(err))
		return model.Identity{}, errcode.NewAuthError("internal-error")
	}

	identity, err := p.getOrCreateIdentity(ctx, confirmation.PhoneNumber, now)
	if err != nil {
		p.log.Error("resolve identity failed", zap.Error(err))
		return model.Identity{}, errcode.NewAuthError("internal-error")
	}

	p.notify(&identity)
	return identity, nil
}

// SignOut invalidates the session and notifies listeners with nil.
func (p *OtpProvider) SignOut(ctx context.Context, identityID string) error {
	p.notify(nil)
	return nil
}

// OnIdentityChange registers a listener; cancel is idempotent.
func (p *OtpProvider) OnIdentityChange(cb func(*model.Identity)) func() {
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = cb
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *OtpProvider) notify(identity *model.Identity) {
	p.mu.Lock()
	cbs := make([]func(*model.Identity), 0, len(p.listeners))
	for _, cb := range p.listeners {
		cbs = append(cbs, cb)
	}
	p.mu.Unlock()

	for _, cb := range cbs {
		cb(identity)
	}
}

func (p *OtpProvider) countRecentRequests(ctx context.Context, phone string, since time.Time) (int, error) {
	docs, err := p.store.Query(ctx, challengeCollection, store.WhereEqual("phoneNumber", phone))
	if err != nil {
		return 0, fmt.Errorf("query challenges: %w", err)
	}
	count := 0
	for _, doc := range docs {
		if created, ok := doc.Fields["createdAt"].(time.Time); ok && created.After(since) {
			count++
		}
	}
	return count, nil
}

// consumeActiveChallenges enforces one active challenge per phone.
func (p *OtpProvider) consumeActiveChallenges(ctx context.Context, phone string) error {
	docs, err := p.store.Query(ctx, challengeCollection, store.WhereEqual("phoneNumber", phone))
	if err != nil {
		return fmt.Errorf("query challenges: %w", err)
	}
	now := time.Now()
	for _, doc := range docs {
		if _, consumed := doc.Fields["consumedAt"]; consumed {
			continue
		}
		if err := p.store.Update(ctx, doc.Path, map[string]interface{}{"consumedAt": now}); err != nil {
			return fmt.Errorf("consume challenge %s: %w", doc.ID, err)
		}
	}
	return nil
}

func (p *OtpProvider) getOrCreateIdentity(ctx context.Context, phone string, now time.Time) (model.Identity, error) {
	docs, err := p.store.Query(ctx, identityCollection, store.WhereEqual("phoneNumber", phone))
	if err != nil {
		return model.Identity{}, fmt.Errorf("query identities: %w", err)
	}
	if len(docs) > 0 {
		doc := docs[0]
		return model.Identity{ID: doc.ID, PhoneNumber: phone, VerifiedAt: now}, nil
	}

	id := uuid.NewString()
	err = p.store.Set(ctx, identityCollection+"/"+id, map[string]interface{}{
		"phoneNumber": phone,
		"createdAt":   store.ServerTimestamp,
	})
	if err != nil {
		return model.Identity{}, fmt.Errorf("create identity: %w", err)
	}
	return model.Identity{ID: id, PhoneNumber: phone, VerifiedAt: now}, nil
}

func challengeFromDoc(doc store.Document) model.Challenge {
	ch := model.Challenge{ID: doc.ID}
	if v, ok := doc.Fields["phoneNumber"].(string); ok {
		ch.PhoneNumber = v
	}
	if v, ok := doc.Fields["codeHash"].(string); ok {
		ch.CodeHash, _ = hex.DecodeString(v)
	}
	if v, ok := doc.Fields["expiresAt"].(time.Time); ok {
		ch.ExpiresAt = v
	}
	if v, ok := doc.Fields["createdAt"].(time.Time); ok {
		ch.CreatedAt = v
	}
	if v, ok := doc.Fields["consumedAt"].(time.Time); ok {
		ch.ConsumedAt = &v
	}
	if v, ok := doc.Fields["lastAttemptAt"].(time.Time); ok {
		ch.LastAttemptAt = &v
	}
	switch v := doc.Fields["attemptCount"].(type) {
	case int:
		ch.AttemptCount = v
	case float64:
		ch.AttemptCount = int(v)
	}
	return ch
}

func generateCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return fmt.Sprintf("%06d", rng.Intn(900000)+100000)
}

// hashCodeHex returns SHA-256(phone:code:salt) as hex for storage.
func hashCodeHex(phone, code, salt string) string {
	return hex.EncodeToString(hashCodeBytes(phone, code, salt))
}

func hashCodeBytes(phone, code, salt string) []byte {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", phone, code, salt)))
	return sum[:]
}

// MaskPhone hides the middle of a phone number for logging (+91******89).
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}
