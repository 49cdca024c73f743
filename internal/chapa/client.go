// Package chapa is the payment-provider client. Initialize creates a hosted
// checkout session; Verify asks the provider's server-side endpoint whether a
// reference actually succeeded, which is the only input the reconciler trusts.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "https://api.chapa.co"

// HostedPayURL is the browser redirect target for the auto-submitting form
// variant of checkout.
const HostedPayURL = "https://api.chapa.co/v1/hosted/pay"

// ErrUnreachable wraps transport-level failures so callers can distinguish
// "provider said no" from "we never got an answer".
var ErrUnreachable = errors.New("chapa: provider unreachable")

type Client struct {
	http      *http.Client
	baseURL   string
	secretKey string
	publicKey string
}

func NewClient(baseURL, secretKey, publicKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:      &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		publicKey: publicKey,
	}
}

type InitializeRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	TxRef       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

type initializePayload struct {
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	TxRef         string            `json:"tx_ref"`
	CallbackURL   string            `json:"callback_url,omitempty"`
	ReturnURL     string            `json:"return_url,omitempty"`
	Customization map[string]string `json:"customization,omitempty"`
}

type InitializeResponse struct {
	CheckoutURL string
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) Initialize(ctx context.Context, in InitializeRequest) (InitializeResponse, error) {
	payload := initializePayload{
		Amount:      in.Amount.String(),
		Currency:    in.Currency,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		TxRef:       in.TxRef,
		CallbackURL: in.CallbackURL,
		ReturnURL:   in.ReturnURL,
	}
	if in.Title != "" || in.Description != "" {
		payload.Customization = map[string]string{}
		if in.Title != "" {
			payload.Customization["title"] = in.Title
		}
		if in.Description != "" {
			payload.Customization["description"] = in.Description
		}
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return InitializeResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return InitializeResponse{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return InitializeResponse{}, fmt.Errorf("%w: bad response: %v", ErrUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "success" {
		return InitializeResponse{}, fmt.Errorf("chapa: initialize rejected: %s", env.Message)
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.CheckoutURL == "" {
		return InitializeResponse{}, errors.New("chapa: initialize response missing checkout_url")
	}
	return InitializeResponse{CheckoutURL: data.CheckoutURL}, nil
}

// VerifyResult classifies the provider's answer. OK is true only when the
// provider explicitly reports success for the reference; everything else
// (pending, ambiguous, denied) is not OK, and the caller must not credit.
type VerifyResult struct {
	OK             bool
	Denied         bool
	ProviderStatus string
	Amount         decimal.Decimal
	Currency       string
}

func (c *Client) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transaction/verify/"+reference, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	// Unknown reference: the provider never saw this payment.
	if resp.StatusCode == http.StatusNotFound {
		return VerifyResult{Denied: true, ProviderStatus: "not_found"}, nil
	}
	if resp.StatusCode >= 500 {
		return VerifyResult{}, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return VerifyResult{}, fmt.Errorf("%w: bad response: %v", ErrUnreachable, err)
	}

	var data struct {
		Status   string          `json:"status"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return VerifyResult{}, fmt.Errorf("chapa: verify payload: %w", err)
		}
	}

	res := VerifyResult{ProviderStatus: data.Status, Amount: data.Amount, Currency: data.Currency}
	switch {
	case env.Status == "success" && data.Status == "success":
		res.OK = true
	case data.Status == "failed" || data.Status == "cancelled" || env.Status == "failed":
		res.Denied = true
	default:
		// pending / ambiguous: neither success nor terminal denial.
	}
	return res, nil
}

// HostedFormFields returns the fields for the auto-submitting form that posts
// the user to HostedPayURL. Only the public key ever reaches the browser.
func (c *Client) HostedFormFields(in InitializeRequest) map[string]string {
	return map[string]string{
		"public_key":   c.publicKey,
		"tx_ref":       in.TxRef,
		"amount":       in.Amount.String(),
		"currency":     in.Currency,
		"email":        in.Email,
		"first_name":   in.FirstName,
		"last_name":    in.LastName,
		"title":        in.Title,
		"description":  in.Description,
		"callback_url": in.CallbackURL,
		"return_url":   in.ReturnURL,
	}
}
