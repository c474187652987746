package vonage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/tracing"
	"relaycast/pkg/utils"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.opentok.com"

// maxErrorMessage bounds how much of an error body ends up in returned errors.
const maxErrorMessage = 512

type Config struct {
	BaseURL        string
	APIKey         string
	APISecret      string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
}

// Client talks to the Vonage Video REST API of one project.
type Client struct {
	baseURL string
	tokens  *TokenSource
	http    *http.Client
	logger  *zap.SugaredLogger
}

var _ ports.VideoProvider = (*Client)(nil)

func NewClient(cfg Config, httpClient *http.Client, clock clockwork.Clock, logger *zap.SugaredLogger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.RequestTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL: baseURL + "/v2/project/" + url.PathEscape(cfg.APIKey),
		tokens:  NewTokenSource(cfg.APIKey, cfg.APISecret, cfg.TokenTTL, clock),
		http:    httpClient,
		logger:  logger,
	}
}

func (c *Client) ListStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error) {
	var list streamList
	path := "/session/" + url.PathEscape(string(sessionID)) + "/stream"
	if err := c.do(ctx, "list_streams", sessionID, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	streams := make([]domain.Stream, 0, len(list.Items))
	for _, item := range list.Items {
		streams = append(streams, item.toDomain())
	}
	return streams, nil
}

func (c *Client) ListBroadcasts(ctx context.Context, filter ports.BroadcastFilter) ([]domain.Broadcast, error) {
	path := "/broadcast"
	if filter.SessionID != "" {
		path += "?sessionId=" + url.QueryEscape(string(filter.SessionID))
	}

	var list broadcastList
	if err := c.do(ctx, "list_broadcasts", filter.SessionID, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}

	broadcasts := make([]domain.Broadcast, 0, len(list.Items))
	for _, item := range list.Items {
		broadcasts = append(broadcasts, item.toDomain())
	}
	return broadcasts, nil
}

func (c *Client) SetStreamClassLists(ctx context.Context, sessionID domain.SessionID, mutations []domain.StreamClassMutation) error {
	body := classListRequest{Items: make([]classListItem, 0, len(mutations))}
	for _, m := range mutations {
		classes := m.ClassList
		if classes == nil {
			classes = []string{}
		}
		body.Items = append(body.Items, classListItem{ID: string(m.StreamID), LayoutClassList: classes})
	}

	path := "/session/" + url.PathEscape(string(sessionID)) + "/stream"
	return c.do(ctx, "set_stream_class_lists", sessionID, http.MethodPut, path, body, nil)
}

func (c *Client) SetBroadcastLayout(ctx context.Context, broadcastID domain.BroadcastID, layout domain.Algorithm) error {
	path := "/broadcast/" + url.PathEscape(string(broadcastID)) + "/layout"
	return c.do(ctx, "set_broadcast_layout", "", http.MethodPut, path, layoutFromAlgorithm(layout), nil)
}

func (c *Client) StartBroadcast(ctx context.Context, sessionID domain.SessionID, req domain.StartBroadcastRequest) (*domain.Broadcast, error) {
	body := startBroadcastRequest{
		SessionID:  string(sessionID),
		Layout:     layoutFromAlgorithm(req.Layout),
		Outputs:    outputs{RTMP: make([]rtmpOutput, 0, len(req.Destinations))},
		Resolution: req.Resolution,
	}
	for _, dest := range req.Destinations {
		id := dest.ID
		if id == "" {
			id = utils.ShortID()
		}
		body.Outputs.RTMP = append(body.Outputs.RTMP, rtmpOutput{
			ID:         id,
			ServerURL:  dest.ServerURL,
			StreamName: dest.StreamName,
		})
	}

	var item broadcastItem
	if err := c.do(ctx, "start_broadcast", sessionID, http.MethodPost, "/broadcast", body, &item); err != nil {
		return nil, err
	}
	broadcast := item.toDomain()
	if broadcast.SessionID == "" {
		broadcast.SessionID = sessionID
	}
	return &broadcast, nil
}

func (c *Client) StopBroadcast(ctx context.Context, broadcastID domain.BroadcastID) error {
	path := "/broadcast/" + url.PathEscape(string(broadcastID)) + "/stop"
	return c.do(ctx, "stop_broadcast", "", http.MethodPost, path, nil, nil)
}

func (c *Client) Signal(ctx context.Context, sessionID domain.SessionID, signal domain.Signal) error {
	path := "/session/" + url.PathEscape(string(sessionID)) + "/signal"
	body := signalRequest{Type: signal.Type, Data: string(signal.Data)}
	return c.do(ctx, "signal", sessionID, http.MethodPost, path, body, nil)
}

func (c *Client) ForceDisconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	path := "/session/" + url.PathEscape(string(sessionID)) + "/connection/" + url.PathEscape(string(connectionID))
	return c.do(ctx, "force_disconnect", sessionID, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, op string, sessionID domain.SessionID, method, path string, payload, dest interface{}) error {
	ctx, span := tracing.TraceProviderCall(ctx, op, string(sessionID))
	defer span.End()

	err := c.roundTrip(ctx, method, path, payload, dest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debugw("provider call failed",
			"operation", op,
			"session_id", sessionID,
			"method", method,
			"error", err,
		)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload, dest interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set(authHeader, token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if dest == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("%w: decode %s %s: %v", domain.ErrProviderUnavailable, method, path, err)
		}
		return nil
	}

	return statusError(method, path, resp)
}

func statusError(method, path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	message := strings.TrimSpace(string(data))
	var decoded errorBody
	if json.Unmarshal(data, &decoded) == nil && decoded.Message != "" {
		message = decoded.Message
	}

	sentinel := domain.ErrProviderRejected
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		sentinel = domain.ErrProviderUnavailable
	}
	return fmt.Errorf("%w: %s %s: %s: %s", sentinel, method, path, resp.Status, utils.TruncateString(message, maxErrorMessage))
}
