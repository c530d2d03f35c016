package sms

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrCodeMismatch is a recoverable verification failure; the user may
	// re-enter the code without restarting the session.
	ErrCodeMismatch = errors.New("verification code does not match")

	// ErrCodeExpired is returned after the validity window has elapsed or
	// when no code was ever issued for the phone number.
	ErrCodeExpired = errors.New("verification code expired or not issued")
)

type issuedCode struct {
	code      string
	expiresAt time.Time
}

// Verifier issues 6-digit verification codes over SMS and checks them
// within a bounded validity window.
type Verifier struct {
	log    *zap.Logger
	sender Sender
	ttl    time.Duration

	mu    sync.Mutex
	codes map[string]issuedCode // keyed by phone number
	now   func() time.Time
}

// NewVerifier creates a verifier with the configured code validity window.
func NewVerifier(log *zap.Logger, sender Sender, ttl time.Duration) *Verifier {
	return &Verifier{
		log:    log,
		sender: sender,
		ttl:    ttl,
		codes:  make(map[string]issuedCode),
		now:    time.Now,
	}
}

// Issue generates a fresh code for the phone number and sends it. A
// re-request replaces the previous code and restarts the window.
func (v *Verifier) Issue(ctx context.Context, phone string) error {
	code, err := randomCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	body := fmt.Sprintf("[V-CHECK] 본인확인 인증번호는 [%s]입니다.", code)
	if err := v.sender.Send(ctx, phone, body); err != nil {
		return err
	}

	v.mu.Lock()
	v.codes[phone] = issuedCode{code: code, expiresAt: v.now().Add(v.ttl)}
	v.mu.Unlock()

	v.log.Info("Verification code issued", zap.String("phone", phone))
	return nil
}

// Confirm checks a submitted code. Success consumes the code.
func (v *Verifier) Confirm(phone, code string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	issued, ok := v.codes[phone]
	if !ok || v.now().After(issued.expiresAt) {
		delete(v.codes, phone)
		return ErrCodeExpired
	}
	if code != issued.code {
		return ErrCodeMismatch
	}

	delete(v.codes, phone)
	return nil
}

// randomCode draws a uniform 6-digit code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
