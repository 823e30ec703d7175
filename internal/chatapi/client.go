package chatapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

const (
	listConvosPath = "/xrpc/chat.bsky.convo.listConvos"
	getLogPath     = "/xrpc/chat.bsky.convo.getLog"

	proxyHeader = "Atproto-Proxy"

	defaultRequestTimeout = 30 * time.Second
	defaultRatePerSecond  = 5
	defaultRateBurst      = 10
	maxErrorBodyBytes     = 1024
)

// Config customizes the chat service client.
type Config struct {
	Host        string
	ChatProxy   string
	AccessToken string
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Logger      *slog.Logger
}

// Client talks to the account's PDS, which proxies chat calls to the chat
// service named by the Atproto-Proxy header.
type Client struct {
	host      string
	chatProxy string
	token     string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

func NewClient(cfg Config) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultRequestTimeout}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(defaultRatePerSecond), defaultRateBurst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		host:      strings.TrimRight(strings.TrimSpace(cfg.Host), "/"),
		chatProxy: strings.TrimSpace(cfg.ChatProxy),
		token:     strings.TrimSpace(cfg.AccessToken),
		client:    client,
		limiter:   limiter,
		logger:    logger,
	}
}

// ListConvos fetches one page of the account's conversation list. An empty
// cursor requests the first page; the returned page carries the cursor for
// the one after it, empty at the end of the list.
func (c *Client) ListConvos(ctx context.Context, cursor string, limit int) (chat.Page, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var payload listConvosResponse
	if err := c.get(ctx, listConvosPath, query, &payload); err != nil {
		return chat.Page{}, err
	}

	page := chat.Page{Cursor: payload.Cursor}
	page.Convos = make([]*chat.ConvoSummary, 0, len(payload.Convos))
	for _, convo := range payload.Convos {
		page.Convos = append(page.Convos, convo.toSummary())
	}

	return page, nil
}

// GetLog tails the conversation event log from cursor. It returns the decoded
// events, including LogKindUnknown placeholders for kinds this client does
// not understand, and the cursor to resume from.
func (c *Client) GetLog(ctx context.Context, cursor string) ([]LogEvent, string, error) {
	query := url.Values{}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	var payload getLogResponse
	if err := c.get(ctx, getLogPath, query, &payload); err != nil {
		return nil, "", err
	}

	events := make([]LogEvent, 0, len(payload.Logs))
	for _, entry := range payload.Logs {
		events = append(events, entry.toEvent())
	}

	return events, payload.Cursor, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	endpoint := c.host + path
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.chatProxy != "" {
		req.Header.Set(proxyHeader, c.chatProxy)
	}

	c.logger.Debug("chat service request", "path", path)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("chat service response", "path", path, "status_code", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}

	return nil
}

func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error
		apiErr.Message = payload.Message
	} else if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		apiErr.Message = trimmed
	}

	return apiErr
}
