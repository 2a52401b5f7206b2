package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrCaptchaFailed      = errors.New("captcha verification failed")
	ErrCaptchaUnavailable = errors.New("captcha service unavailable")
)

// CaptchaVerifier validates a client-supplied CAPTCHA assertion.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) error
}

// RecaptchaVerifier checks assertions against Google's siteverify endpoint.
type RecaptchaVerifier struct {
	httpClient *http.Client
	verifyURL  string
	secret     string
}

// NewRecaptchaVerifier creates a verifier with the given server-side secret.
func NewRecaptchaVerifier(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		verifyURL: "https://www.google.com/recaptcha/api/siteverify",
		secret:    secret,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the assertion to siteverify. An unsuccessful assertion maps
// to ErrCaptchaFailed; transport or decode failures map to
// ErrCaptchaUnavailable.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token string) error {
	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrCaptchaUnavailable, resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}

	if !body.Success {
		return ErrCaptchaFailed
	}
	return nil
}

// NoopVerifier accepts every assertion. Used when CAPTCHA is disabled for
// local development and in tests.
type NoopVerifier struct{}

func (NoopVerifier) Verify(context.Context, string) error { return nil }
