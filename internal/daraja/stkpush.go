package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type STKPushRequest struct {
	Amount           decimal.Decimal
	PhoneNumber      string
	AccountReference string
	Description      string
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

type QueryResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
}

type stkQueryResponse struct {
	ResponseCode        string      `json:"ResponseCode"`
	ResponseDescription string      `json:"ResponseDescription"`
	MerchantRequestID   string      `json:"MerchantRequestID"`
	CheckoutRequestID   string      `json:"CheckoutRequestID"`
	ResultCode          flexibleInt `json:"ResultCode"`
	ResultDesc          string      `json:"ResultDesc"`
}

// errorResponse is the body the provider sends with non-2xx statuses.
type errorResponse struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func providerMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	if len(body) > 256 {
		body = body[:256]
	}
	return string(body)
}

// STKPush asks the provider to prompt the customer's handset for payment.
// The outcome arrives later on the callback URL.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	ctx, span := tracer.Start(ctx, "daraja.stkpush")
	defer span.End()

	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInitiation)
	}
	phone, err := NormalizePhone(req.PhoneNumber, c.cfg.CountryCode)
	if err != nil {
		return nil, err
	}

	ts := Timestamp(c.now(), c.cfg.Location)
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		TransactionType:   c.cfg.TransactionType,
		Amount:            req.Amount.IntPart(),
		PartyA:            phone,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}
	span.SetAttributes(attribute.String("daraja.account_reference", req.AccountReference))

	status, body, err := c.authorizedPost(ctx, stkPushPath, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stk push failed")
		if errors.Is(err, ErrTokenAcquisition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInitiation, err)
	}
	if status < 200 || status > 299 {
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("%w: status %d: %s", ErrInitiation, status, providerMessage(body))
	}

	var reply STKPushResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrInitiation, err)
	}
	if reply.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: response code %q: %s", ErrInitiation, reply.ResponseCode, reply.ResponseDescription)
	}
	if reply.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: response has no CheckoutRequestID", ErrInitiation)
	}

	span.SetAttributes(attribute.String("daraja.checkout_request_id", reply.CheckoutRequestID))
	c.logger.Info("stk push accepted",
		"checkout_request_id", reply.CheckoutRequestID,
		"merchant_request_id", reply.MerchantRequestID)

	return &reply, nil
}

// QueryStatus asks the provider for the final result of a push whose callback never arrived.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResult, error) {
	ctx, span := tracer.Start(ctx, "daraja.query")
	defer span.End()
	span.SetAttributes(attribute.String("daraja.checkout_request_id", checkoutRequestID))

	ts := Timestamp(c.now(), c.cfg.Location)
	payload := stkQueryPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, ts),
		Timestamp:         ts,
		CheckoutRequestID: checkoutRequestID,
	}

	status, body, err := c.authorizedPost(ctx, stkQueryPath, payload)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrTokenAcquisition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}
	if status < 200 || status > 299 {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.ErrorCode == stillProcessingCode {
			return nil, ErrStillProcessing
		}
		span.SetStatus(codes.Error, "unexpected status")
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuery, status, providerMessage(body))
	}

	var reply stkQueryResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQuery, err)
	}
	if !reply.ResultCode.set {
		return nil, fmt.Errorf("%w: response has no ResultCode", ErrQuery)
	}

	return &QueryResult{
		MerchantRequestID: reply.MerchantRequestID,
		CheckoutRequestID: reply.CheckoutRequestID,
		ResultCode:        reply.ResultCode.value,
		ResultDesc:        reply.ResultDesc,
	}, nil
}

// authorizedPost sends payload with the cached bearer token. A 401 drops the
// token and the request is retried once with a fresh one.
func (c *Client) authorizedPost(ctx context.Context, path string, payload interface{}) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.Get(ctx)
		if err != nil {
			return 0, nil, err
		}

		status, body, err := c.post(ctx, path, token, data)
		if err != nil {
			return 0, nil, err
		}
		if status == http.StatusUnauthorized && attempt == 0 {
			c.logger.Warn("daraja rejected access token, refreshing", "path", path)
			c.tokens.Invalidate(token)
			continue
		}
		return status, body, nil
	}
}

func (c *Client) post(ctx context.Context, path, token string, data []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
