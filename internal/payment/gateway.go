// Package payment wraps the external payment provider. Capture and refund are
// blocking network calls with a bounded timeout; a timeout is reported as a
// failure, never retried here.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"shophub/internal/model"

	"github.com/rs/zerolog"
)

// DeclinedError is an explicit decline from the provider, distinguishable
// from transport failures and timeouts.
type DeclinedError struct {
	Reason string
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

// CaptureResult reports the provider's answer to a capture attempt.
type CaptureResult struct {
	Succeeded     bool
	TransactionID string
}

// Gateway exposes capture and refund against the payment provider.
type Gateway interface {
	// Capture charges the amount against the given method and token.
	Capture(ctx context.Context, amount float64, method model.PaymentMethod, token string) (*CaptureResult, error)

	// Refund returns part or all of a captured amount.
	Refund(ctx context.Context, transactionID string, amount float64) error
}

// HTTPGateway implements Gateway via the provider's HTTP API.
type HTTPGateway struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPGateway creates a payment gateway client with a bounded call timeout.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPGateway, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse payment gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("payment gateway url must be absolute")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &HTTPGateway{
		baseURL: parsed,
		apiKey:  apiKey,
		logger:  logger.With().Str("component", "payment-gateway").Logger(),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type captureRequest struct {
	AmountCents   int64  `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	Token         string `json:"token,omitempty"`
	Confirm       bool   `json:"confirm"`
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Capture charges the amount against the given method and token.
func (g *HTTPGateway) Capture(ctx context.Context, amount float64, method model.PaymentMethod, token string) (*CaptureResult, error) {
	payload := captureRequest{
		AmountCents:   toCents(amount),
		Currency:      "brl",
		PaymentMethod: string(method),
		Token:         token,
		Confirm:       true,
	}

	var result captureResponse
	if err := g.post(ctx, "/v1/payment_intents", payload, &result); err != nil {
		return nil, err
	}

	g.logger.Info().
		Str("transaction_id", result.ID).
		Str("status", result.Status).
		Msg("payment capture completed")

	return &CaptureResult{
		Succeeded:     result.Status == "succeeded",
		TransactionID: result.ID,
	}, nil
}

type refundRequest struct {
	PaymentIntent string `json:"payment_intent"`
	AmountCents   int64  `json:"amount"`
}

type refundResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Refund returns part or all of a captured amount.
func (g *HTTPGateway) Refund(ctx context.Context, transactionID string, amount float64) error {
	payload := refundRequest{
		PaymentIntent: transactionID,
		AmountCents:   toCents(amount),
	}

	var result refundResponse
	if err := g.post(ctx, "/v1/refunds", payload, &result); err != nil {
		return err
	}

	if result.Status != "succeeded" {
		return &DeclinedError{Reason: result.Reason}
	}

	g.logger.Info().
		Str("transaction_id", transactionID).
		Float64("amount", amount).
		Msg("refund completed")

	return nil
}

// post sends a JSON request and decodes the JSON response. HTTP 402 is an
// explicit decline; any other non-2xx status is a provider failure.
func (g *HTTPGateway) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payment request: %w", err)
	}

	endpoint := *g.baseURL
	endpoint.Path += path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error().Err(err).Str("path", path).Msg("payment provider unreachable")
		return fmt.Errorf("payment provider call failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read payment response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decode payment response: %w", err)
		}
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		var declined captureResponse
		reason := "card declined"
		if err := json.Unmarshal(respBody, &declined); err == nil && declined.Reason != "" {
			reason = declined.Reason
		}
		return &DeclinedError{Reason: reason}
	default:
		g.logger.Error().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("payment provider error")
		return fmt.Errorf("payment provider error: %s", resp.Status)
	}
}

// IsDeclined reports whether the error is an explicit provider decline.
func IsDeclined(err error) bool {
	var declined *DeclinedError
	return errors.As(err, &declined)
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
