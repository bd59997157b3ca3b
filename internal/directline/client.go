package directline

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

	"github.com/google/uuid"

	"dlchat/pkg/logging"
)

// DefaultEndpoint is the public Direct Line endpoint.
const DefaultEndpoint = "https://directline.botframework.com"

// basePath is the Direct Line v3 API prefix, appended to the endpoint.
const basePath = "/v3/directline"

// UserIDPrefix is the prefix Direct Line enhanced authentication expects on
// caller-chosen user IDs. IDs without it are accepted but the backend ignores
// them when a token already embeds a user.
const UserIDPrefix = "dl_"

// DefaultHTTPTimeout is the per-request timeout for Direct Line calls.
const DefaultHTTPTimeout = 30 * time.Second

// Client talks to the Direct Line v3 REST API. It owns the shared secret, the
// endpoint and the caller's user identity; per-conversation tokens are passed
// explicitly on each call.
//
// The client performs no retries. Transient failure tolerance belongs to the
// reconciler's bounded poll loop, and send failures must surface immediately.
type Client struct {
	httpClient *http.Client
	secret     string
	endpoint   string
	baseURL    string
	userID     string
}

// ClientConfig configures a Direct Line client.
type ClientConfig struct {
	// Secret is the shared Direct Line channel secret. Required.
	Secret string

	// Endpoint overrides the Direct Line endpoint (regional deployments,
	// test servers). Defaults to DefaultEndpoint.
	Endpoint string

	// UserID is the caller's user identity for enhanced authentication.
	// Defaults to "dl_" followed by a random UUID. IDs without the "dl_"
	// prefix are accepted with a warning.
	UserID string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// NewClient creates a Direct Line client.
// Returns ErrSecretRequired when no secret is configured; this is checked
// before any network activity.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Secret == "" {
		return nil, ErrSecretRequired
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	userID := cfg.UserID
	if userID == "" {
		userID = UserIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if !strings.HasPrefix(userID, UserIDPrefix) {
		logging.Warn("DirectLine", "User ID %q should start with %q for enhanced authentication", userID, UserIDPrefix)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	return &Client{
		httpClient: httpClient,
		secret:     cfg.Secret,
		endpoint:   endpoint,
		baseURL:    endpoint + basePath,
		userID:     userID,
	}, nil
}

// UserID returns the client's user identity.
func (c *Client) UserID() string {
	return c.userID
}

// Endpoint returns the configured Direct Line endpoint.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// do executes one authenticated request against the Direct Line API.
// token selects the bearer credential; when empty the shared secret is used.
// Any non-2xx status becomes a *TransportError carrying status and raw body.
// A 2xx body that cannot be decoded into out becomes a *ProtocolError.
func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	if token == "" {
		token = c.secret
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &ProtocolError{Op: method + " " + path, Reason: "undecodable response body", Err: err}
		}
	}

	return nil
}

// GenerateToken requests a conversation-scoped token via POST /tokens/generate.
// userName is optional; trustedOrigins restricts the domains allowed to use
// the token (enhanced authentication).
func (c *Client) GenerateToken(ctx context.Context, userName string, trustedOrigins []string) (*Conversation, error) {
	req := tokenRequest{
		User:           &user{ID: c.userID, Name: userName},
		TrustedOrigins: trustedOrigins,
	}

	logging.Info("DirectLine", "Generating token for user: %s", c.userID)

	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/tokens/generate", "", nil, req, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, &ProtocolError{Op: "POST /tokens/generate", Reason: "response missing conversationId"}
	}

	logging.Info("DirectLine", "Generated token for conversation: %s", conv.ID)
	return &conv, nil
}

// StartOptions configures StartConversation.
type StartOptions struct {
	// UserToken is an Entra ID access token. When set it replaces the shared
	// secret as the bearer for this call only, producing a delegated
	// (authenticated) conversation.
	UserToken string

	// UserID overrides the client's user identity for this conversation.
	UserID string

	// UserName is the user's display name, embedded in the request body.
	UserName string
}

// StartConversation opens a new conversation via POST /conversations.
func (c *Client) StartConversation(ctx context.Context, opts StartOptions) (*Conversation, error) {
	userID := opts.UserID
	if userID == "" {
		userID = c.userID
	}

	req := startRequest{User: &user{ID: userID, Name: opts.UserName}}

	logging.Info("DirectLine", "Starting conversation for user: %s", userID)

	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", opts.UserToken, nil, req, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, &ProtocolError{Op: "POST /conversations", Reason: "response missing conversationId"}
	}

	logging.Info("DirectLine", "Started conversation: %s", conv.ID)
	return &conv, nil
}

// SendMessage posts a message-typed activity to the conversation and returns
// the server-assigned activity ID.
//
// Empty or all-whitespace text is rejected locally with ErrEmptyMessage;
// no network call is made. Send failures are never retried here.
func (c *Client) SendMessage(ctx context.Context, conversationID, text, token string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	req := sendRequest{
		Type: "message",
		Text: text,
		From: &user{ID: c.userID},
	}

	logging.Info("DirectLine", "Sending message to conversation: %s", conversationID)

	var resp sendResponse
	path := "/conversations/" + url.PathEscape(conversationID) + "/activities"
	if err := c.do(ctx, http.MethodPost, path, token, nil, req, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", &ProtocolError{Op: "POST " + path, Reason: "response missing activity id"}
	}

	logging.Debug("DirectLine", "Message sent with activity ID: %s", resp.ID)
	return resp.ID, nil
}

// GetActivities fetches one batch of activities via GET
// /conversations/{id}/activities. watermark limits the batch to activities
// after the cursor; empty means from the beginning. The batch is returned in
// server order, unsorted.
func (c *Client) GetActivities(ctx context.Context, conversationID, watermark, token string) (*ActivitySet, error) {
	query := url.Values{}
	if watermark != "" {
		query.Set("watermark", watermark)
	}

	logging.Debug("DirectLine", "Getting activities for conversation: %s", conversationID)

	var set ActivitySet
	path := "/conversations/" + url.PathEscape(conversationID) + "/activities"
	if err := c.do(ctx, http.MethodGet, path, token, query, nil, &set); err != nil {
		return nil, err
	}

	logging.Debug("DirectLine", "Retrieved %d activities for conversation: %s", len(set.Activities), conversationID)
	return &set, nil
}

// RefreshToken exchanges a conversation token for a renewed one via POST
// /tokens/refresh. The backend guarantees the conversation ID is unchanged;
// that is not re-validated here.
//
// Refresh requires a per-conversation token: resume-mode sessions (token ==
// secret) are rejected locally with ErrTokenRequired.
func (c *Client) RefreshToken(ctx context.Context, token string) (*Conversation, error) {
	if token == "" || token == c.secret {
		return nil, ErrTokenRequired
	}

	logging.Info("DirectLine", "Refreshing conversation token")

	var conv Conversation
	if err := c.do(ctx, http.MethodPost, "/tokens/refresh", token, nil, nil, &conv); err != nil {
		return nil, err
	}
	if conv.ID == "" {
		return nil, &ProtocolError{Op: "POST /tokens/refresh", Reason: "response missing conversationId"}
	}

	logging.Info("DirectLine", "Token refreshed for conversation: %s", conv.ID)
	return &conv, nil
}

// ResumeConversation constructs a degraded Conversation handle for continuing
// an existing conversation by ID using the shared secret in place of a
// per-conversation token.
func (c *Client) ResumeConversation(conversationID string) *Conversation {
	return &Conversation{
		ID:        conversationID,
		Token:     c.secret,
		ExpiresIn: 0,
	}
}
