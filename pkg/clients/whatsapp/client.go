package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/guardops/internal/config"
)

// ErrEmptyRecipient rejects a message without a usable phone number.
var ErrEmptyRecipient = errors.New("whatsapp recipient is empty")

// Client exposes WhatsApp Cloud API operations used by the application.
type Client interface {
	SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient    *resty.Client
	phoneNumberID string
}

// NewClient builds a WhatsApp API client. Server errors are retried twice.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New().
		SetBaseURL(fmt.Sprintf("%s/%s", base, cfg.APIVersion)).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	return &APIClient{
		httpClient:    restyClient,
		phoneNumberID: cfg.PhoneNumberID,
	}
}

// SendTextMessageRequest is a plain text message to one recipient.
type SendTextMessageRequest struct {
	To         string
	Body       string
	PreviewURL bool
}

// SendTextMessageResponse mirrors the successful response from Meta.
type SendTextMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// MessageID returns the id Meta assigned to the first message, if any.
func (r *SendTextMessageResponse) MessageID() string {
	if r == nil || len(r.Messages) == 0 {
		return ""
	}
	return r.Messages[0].ID
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	Status    int
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	FBTraceID string `json:"fbtrace_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d message=%s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// SendTextMessage delivers req.Body to req.To. Formatting characters in the
// number are stripped.
func (c *APIClient) SendTextMessage(ctx context.Context, req SendTextMessageRequest) (*SendTextMessageResponse, error) {
	to := Recipient(req.To)
	if to == "" {
		return nil, ErrEmptyRecipient
	}

	result := new(SendTextMessageResponse)
	envelope := new(errorEnvelope)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(textPayload{
			MessagingProduct: "whatsapp",
			RecipientType:    "individual",
			To:               to,
			Type:             "text",
			Text:             textBody{Body: req.Body, PreviewURL: req.PreviewURL},
		}).
		SetResult(result).
		SetError(envelope).
		Post(fmt.Sprintf("%s/messages", c.phoneNumberID))
	if err != nil {
		return nil, fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.IsError() {
		apiErr := envelope.Error
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}

	return result, nil
}

// Recipient keeps only the digits of a phone number.
func Recipient(number string) string {
	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
