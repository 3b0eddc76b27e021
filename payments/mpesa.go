package payments

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	mpesaSandboxURL    = "https://sandbox.safaricom.co.ke"
	mpesaProductionURL = "https://api.safaricom.co.ke"
	mpesaTimeLayout    = "20060102150405"
)

type MpesaConfig struct {
	Environment    string
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	Timeout        time.Duration
}

func (c MpesaConfig) Configured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.Shortcode != "" && c.Passkey != "" && c.CallbackURL != ""
}

func (c MpesaConfig) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	if strings.EqualFold(c.Environment, "production") {
		return mpesaProductionURL
	}
	return mpesaSandboxURL
}

// MpesaGateway sends Daraja STK push requests. Settlement arrives later on
// the callback URL and is decoded by ParseMpesaCallback.
type MpesaGateway struct {
	cfg    MpesaConfig
	client *resty.Client
	now    func() time.Time
}

func NewMpesaGateway(cfg MpesaConfig) *MpesaGateway {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.baseURL()).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &MpesaGateway{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

func (g *MpesaGateway) Provider() string {
	return ProviderMpesa
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

func (g *MpesaGateway) Initiate(ctx context.Context, req Request) (*Initiation, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if !g.cfg.Configured() {
		return nil, errors.New("mpesa credentials are not configured")
	}

	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := g.now().UTC().Format(mpesaTimeLayout)
	password := base64.StdEncoding.EncodeToString([]byte(g.cfg.Shortcode + g.cfg.Passkey + timestamp))

	payload := map[string]any{
		"BusinessShortCode": g.cfg.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            req.Amount.Ceil().IntPart(),
		"PartyA":            phone,
		"PartyB":            g.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       g.cfg.CallbackURL,
		"AccountReference":  req.Reference,
		"TransactionDesc":   req.Description,
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post("/mpesa/stkpush/v1/processrequest")
	if err != nil {
		return nil, fmt.Errorf("stk push request failed: %w", err)
	}

	var body stkPushResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("stk push returned status %d with unreadable body: %w", resp.StatusCode(), err)
	}
	if resp.IsError() || body.ResponseCode != "0" {
		msg := body.ErrorMessage
		if msg == "" {
			msg = body.ResponseDescription
		}
		return nil, fmt.Errorf("stk push rejected with status %d: %s", resp.StatusCode(), msg)
	}
	if body.CheckoutRequestID == "" {
		return nil, errors.New("stk push response missing CheckoutRequestID")
	}

	return &Initiation{
		CorrelationID:     body.CheckoutRequestID,
		MerchantRequestID: body.MerchantRequestID,
		Settled:           false,
		Message:           body.CustomerMessage,
	}, nil
}

func (g *MpesaGateway) accessToken(ctx context.Context) (string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret).
		SetQueryParam("grant_type", "client_credentials").
		Get("/oauth/v1/generate")
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("mpesa token request failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var response map[string]any
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	token, ok := response["access_token"].(string)
	if !ok || token == "" {
		return "", errors.New("access token missing in response")
	}
	return token, nil
}

// NormalizePhone turns the local formats buyers type (07.., 01.., +254..)
// into the 2547XXXXXXXX form Daraja expects.
func NormalizePhone(raw string) (string, error) {
	phone := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	phone = strings.TrimPrefix(phone, "+")

	switch {
	case phone == "":
		return "", fmt.Errorf("%w: phone number is required for mpesa payments", ErrInvalidRequest)
	case strings.HasPrefix(phone, "0") && len(phone) == 10:
		phone = "254" + phone[1:]
	case (strings.HasPrefix(phone, "7") || strings.HasPrefix(phone, "1")) && len(phone) == 9:
		phone = "254" + phone
	}

	if len(phone) != 12 || !strings.HasPrefix(phone, "254") {
		return "", fmt.Errorf("%w: unsupported phone number %q", ErrInvalidRequest, raw)
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: unsupported phone number %q", ErrInvalidRequest, raw)
		}
	}
	return phone, nil
}
