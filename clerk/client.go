package clerk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client represents a Clerk Frontend API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu          sync.RWMutex
	clientToken string
}

// NewClient creates a new Clerk client for the instance encoded in
// publishableKey
func NewClient(publishableKey string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	host, err := FrontendAPIHost(publishableKey)
	if err != nil {
		return nil, err
	}

	client := &Client{
		baseURL: "https://" + host,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}
	client.baseURL = strings.TrimRight(client.baseURL, "/")

	return client, nil
}

// FrontendAPIHost decodes the Frontend API host from a publishable key of
// the form pk_test_<base64(host$)> or pk_live_<base64(host$)>
func FrontendAPIHost(publishableKey string) (string, error) {
	var encoded string
	switch {
	case strings.HasPrefix(publishableKey, "pk_test_"):
		encoded = strings.TrimPrefix(publishableKey, "pk_test_")
	case strings.HasPrefix(publishableKey, "pk_live_"):
		encoded = strings.TrimPrefix(publishableKey, "pk_live_")
	default:
		return "", fmt.Errorf("%w: unknown prefix", ErrInvalidPublishableKey)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPublishableKey, err)
		}
	}

	host, ok := strings.CutSuffix(string(decoded), "$")
	if !ok || host == "" {
		return "", fmt.Errorf("%w: malformed host", ErrInvalidPublishableKey)
	}
	return host, nil
}

// ClientToken returns the token identifying this client to Clerk
func (c *Client) ClientToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientToken
}

// doRequest performs a form-encoded request and decodes a JSON response into out
func (c *Client) doRequest(ctx context.Context, method, endpoint string, form url.Values, out any) error {
	params := url.Values{}
	params.Set("_is_native", "1")
	requestURL := c.baseURL + endpoint + "?" + params.Encode()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if token := c.ClientToken(); token != "" {
		req.Header.Set("Authorization", token)
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Making Clerk API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if token := resp.Header.Get("Authorization"); token != "" {
		c.mu.Lock()
		c.clientToken = token
		c.mu.Unlock()
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// doEnvelope performs a request whose payload is wrapped in {response, client}
func (c *Client) doEnvelope(ctx context.Context, method, endpoint string, form url.Values, out any) (*ClientState, error) {
	var env envelope
	if err := c.doRequest(ctx, method, endpoint, form, &env); err != nil {
		return nil, err
	}
	if out != nil && len(env.Response) > 0 && string(env.Response) != "null" {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return env.Client, nil
}

// TestConnection checks that the Frontend API is reachable
func (c *Client) TestConnection(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/v1/environment", nil, nil)
}

// SignIn starts a password sign-in
func (c *Client) SignIn(ctx context.Context, identifier, password string) (*Attempt, error) {
	form := url.Values{}
	form.Set("strategy", "password")
	form.Set("identifier", strings.TrimSpace(identifier))
	form.Set("password", password)

	var attempt Attempt
	if _, err := c.doEnvelope(ctx, http.MethodPost, "/v1/client/sign_ins", form, &attempt); err != nil {
		c.logger.Error().Err(err).Msg("SignIn error")
		return nil, withFallback(err, FallbackSignIn)
	}

	if !attempt.Complete() {
		c.logger.Warn().Str("status", string(attempt.Status)).Msg("SignIn not complete")
	}
	return &attempt, nil
}

// SignUp creates a sign-up for an email address and password
func (c *Client) SignUp(ctx context.Context, email, password string) (*Attempt, error) {
	form := url.Values{}
	form.Set("email_address", strings.TrimSpace(email))
	form.Set("password", password)

	var attempt Attempt
	if _, err := c.doEnvelope(ctx, http.MethodPost, "/v1/client/sign_ups", form, &attempt); err != nil {
		c.logger.Error().Err(err).Msg("SignUp error")
		return nil, withFallback(err, FallbackSignUp)
	}
	return &attempt, nil
}

// PrepareEmailVerification sends an email code for signUpID
func (c *Client) PrepareEmailVerification(ctx context.Context, signUpID string) error {
	form := url.Values{}
	form.Set("strategy", "email_code")

	endpoint := "/v1/client/sign_ups/" + url.PathEscape(signUpID) + "/prepare_verification"
	if _, err := c.doEnvelope(ctx, http.MethodPost, endpoint, form, nil); err != nil {
		c.logger.Error().Err(err).Str("sign_up_id", signUpID).Msg("SignUp error")
		return withFallback(err, FallbackSignUp)
	}
	return nil
}

// AttemptEmailVerification submits the emailed code for signUpID
func (c *Client) AttemptEmailVerification(ctx context.Context, signUpID, code string) (*Attempt, error) {
	form := url.Values{}
	form.Set("strategy", "email_code")
	form.Set("code", strings.TrimSpace(code))

	endpoint := "/v1/client/sign_ups/" + url.PathEscape(signUpID) + "/attempt_verification"
	var attempt Attempt
	if _, err := c.doEnvelope(ctx, http.MethodPost, endpoint, form, &attempt); err != nil {
		c.logger.Error().Err(err).Str("sign_up_id", signUpID).Msg("Verification error")
		return nil, withFallback(err, FallbackVerify)
	}

	if !attempt.Complete() {
		c.logger.Warn().Str("status", string(attempt.Status)).Msg("Verify not complete")
	}
	return &attempt, nil
}

// SetActive makes sessionID the client's active session
func (c *Client) SetActive(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}

	var session Session
	endpoint := "/v1/client/sessions/" + url.PathEscape(sessionID) + "/touch"
	if _, err := c.doEnvelope(ctx, http.MethodPost, endpoint, url.Values{}, &session); err != nil {
		return nil, fmt.Errorf("failed to activate session: %w", err)
	}
	return &session, nil
}

// SessionToken returns a fresh JWT for sessionID
func (c *Client) SessionToken(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrNoSession
	}

	var token Token
	endpoint := "/v1/client/sessions/" + url.PathEscape(sessionID) + "/tokens"
	if err := c.doRequest(ctx, http.MethodPost, endpoint, url.Values{}, &token); err != nil {
		return "", fmt.Errorf("failed to get session token: %w", err)
	}
	if token.JWT == "" {
		return "", ErrInvalidToken
	}
	return token.JWT, nil
}

// State fetches the current client state
func (c *Client) State(ctx context.Context) (*ClientState, error) {
	var state ClientState
	if _, err := c.doEnvelope(ctx, http.MethodGet, "/v1/client", nil, &state); err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &state, nil
}

// CurrentUser returns the user of the active session, or ErrNoSession
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.ClientToken() == "" {
		return nil, ErrNoSession
	}

	state, err := c.State(ctx)
	if err != nil {
		return nil, err
	}

	session := state.ActiveSession()
	if session == nil || session.User == nil {
		return nil, ErrNoSession
	}
	return session.User, nil
}

// SignOut ends every session of this client
func (c *Client) SignOut(ctx context.Context) error {
	if _, err := c.doEnvelope(ctx, http.MethodDelete, "/v1/client", nil, nil); err != nil {
		c.logger.Error().Err(err).Msg("SignOut error")
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}
