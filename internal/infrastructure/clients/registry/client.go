// Package registry implements the client for the registry-monitoring
// collaborator (OpenDataBot-compatible API v3).
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pravoguard/court-monitor/internal/domain/courtcase"
	apperrors "github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/domain/values"
	"github.com/pravoguard/court-monitor/internal/infrastructure/config"
)

// Client talks to the registry-monitoring API. Requests are rate-limited
// client-side; rate-limit responses are retried with bounded exponential
// backoff, every other failure surfaces immediately.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries uint64
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a registry client from config.
func NewClient(cfg config.RegistryConfig, logger *zap.Logger) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
	}
}

// CreateSubscription registers an upstream monitoring subscription and
// returns its id.
func (c *Client) CreateSubscription(ctx context.Context, subType string, code values.EDRPOU) (string, error) {
	params := url.Values{}
	params.Set("type", subType)
	params.Set("subscriptionKey", code.String())

	var resp struct {
		Data struct {
			ID json.Number `json:"id"`
		} `json:"data"`
	}
	if err := c.request(ctx, http.MethodPost, "subscriptions", params, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID.String() == "" {
		return "", apperrors.NewExternalError("SUBSCRIPTION_REJECTED", "registry returned no subscription id")
	}

	c.logger.Info("created registry subscription",
		zap.String("type", subType),
		zap.String("edrpou", code.String()),
		zap.String("subscription_id", resp.Data.ID.String()))
	return resp.Data.ID.String(), nil
}

// Events fetches the incremental event feed. The server applies no cursor
// filter; callers filter client-side.
func (c *Client) Events(ctx context.Context, limit int) ([]courtcase.RegistryEvent, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Items []feedEvent `json:"items"`
	}
	if err := c.request(ctx, http.MethodGet, "history", params, &resp); err != nil {
		return nil, err
	}

	events := make([]courtcase.RegistryEvent, 0, len(resp.Items))
	for _, item := range resp.Items {
		event, err := item.toDomain()
		if err != nil {
			// Data errors never abort the feed; the offending event is dropped.
			c.logger.Warn("dropping malformed feed event",
				zap.String("event_id", item.NotificationID.String()),
				zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

type feedEvent struct {
	NotificationID json.Number    `json:"notificationId"`
	Date           string         `json:"date"`
	Type           string         `json:"type"`
	Code           string         `json:"code"`
	Text           string         `json:"text"`
	Items          []feedCaseItem `json:"items"`
}

type feedCaseItem struct {
	Number       json.Number `json:"number"`
	CaseNumber   string      `json:"caseNumber"`
	CourtName    string      `json:"courtName"`
	Form         string      `json:"form"`
	Type         string      `json:"type"`
	Date         string      `json:"date"`
	DocumentLink string      `json:"documentLink"`
	Plaintiff    string      `json:"plaintiff"`
	Defendant    string      `json:"defendant"`
	ClaimAmount  string      `json:"claimAmount"`
}

func (e feedEvent) toDomain() (courtcase.RegistryEvent, error) {
	code, err := values.NewEDRPOU(e.Code)
	if err != nil {
		return courtcase.RegistryEvent{}, apperrors.NewDataError("BAD_ENTITY_CODE", "event carries no usable entity code").WithCause(err)
	}

	items := make([]courtcase.CaseItem, 0, len(e.Items))
	for _, it := range e.Items {
		amount := decimal.Zero
		if it.ClaimAmount != "" {
			if parsed, err := decimal.NewFromString(it.ClaimAmount); err == nil {
				amount = parsed
			}
		}
		items = append(items, courtcase.CaseItem{
			UpstreamID:   it.Number.String(),
			CaseNumber:   it.CaseNumber,
			CourtName:    it.CourtName,
			Category:     it.Form,
			DocumentType: it.Type,
			Date:         it.Date,
			DocumentLink: it.DocumentLink,
			Plaintiff:    it.Plaintiff,
			Defendant:    it.Defendant,
			ClaimAmount:  amount,
		})
	}

	return courtcase.RegistryEvent{
		ID:         e.NotificationID.String(),
		Type:       e.Type,
		EntityCode: code,
		Date:       e.Date,
		Text:       e.Text,
		Items:      items,
	}, nil
}

// request performs one authenticated call, retrying rate-limit responses
// only, with exponential backoff and a fixed attempt cap.
func (c *Client) request(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	operation := func() error {
		return c.doOnce(ctx, method, endpoint, params, out)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}
		if apperrors.IsRateLimit(err) {
			c.logger.Warn("registry rate limit hit, backing off", zap.String("endpoint", endpoint))
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return apperrors.NewInternalError("rate limiter wait interrupted").WithCause(err)
	}

	params.Set("apiKey", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return apperrors.NewInternalError("building registry request").WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalError("REGISTRY_UNREACHABLE", "registry request failed").WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return apperrors.NewRateLimitError("registry rate limit exceeded")
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError("registry resource")
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewPermanentError("PLAN_LIMIT", fmt.Sprintf("registry refused request: %s", resp.Status))
	case resp.StatusCode >= 500:
		return apperrors.NewExternalError("REGISTRY_UNAVAILABLE", fmt.Sprintf("registry server error: %s", resp.Status))
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewExternalError("REGISTRY_ERROR", fmt.Sprintf("unexpected registry status: %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewExternalError("REGISTRY_READ", "reading registry response").WithCause(err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewDataError("REGISTRY_DECODE", "decoding registry response").WithCause(err)
	}
	return nil
}
