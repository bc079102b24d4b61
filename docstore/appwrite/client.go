package appwrite

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
	"github.com/rs/zerolog"

	"github.com/s0up4200/reelbox/docstore"
)

// DefaultEndpoint is the Appwrite Cloud API root
const DefaultEndpoint = "https://cloud.appwrite.io/v1"

// Client is a docstore.Store backed by the Appwrite Databases REST API
type Client struct {
	endpoint   string
	projectID  string
	databaseID string
	apiKey     string
	httpClient *http.Client
	jwt        string
	logger     zerolog.Logger
}

// NewClient creates a new Appwrite client scoped to one database
func NewClient(endpoint, projectID, databaseID string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if projectID == "" {
		return nil, fmt.Errorf("%w: appwrite project id is required", docstore.ErrInvalidConfig)
	}
	if databaseID == "" {
		return nil, fmt.Errorf("%w: appwrite database id is required", docstore.ErrInvalidConfig)
	}

	client := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		projectID:  projectID,
		databaseID: databaseID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

func (c *Client) documentsPath(collection string) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(c.databaseID), url.PathEscape(collection))
}

// doRequest performs an authenticated request and decodes a JSON response into out
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, payload, out any) error {
	requestURL := c.endpoint + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Appwrite-Project", c.projectID)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	switch {
	case c.jwt != "":
		req.Header.Set("X-Appwrite-JWT", c.jwt)
	case c.apiKey != "":
		req.Header.Set("X-Appwrite-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// List implements docstore.Store
func (c *Client) List(ctx context.Context, collection string, queries ...docstore.Query) ([]docstore.Document, error) {
	params := url.Values{}
	for _, q := range queries {
		if err := q.Validate(); err != nil {
			return nil, err
		}
		params.Add("queries[]", q.String())
	}

	var response documentList
	if err := c.doRequest(ctx, http.MethodGet, c.documentsPath(collection), params, nil, &response); err != nil {
		c.logger.Error().Err(err).Str("collection", collection).Msg("Failed to list documents")
		return nil, err
	}

	c.logger.Debug().
		Str("collection", collection).
		Int("count", len(response.Documents)).
		Int("total", response.Total).
		Msg("Listed Appwrite documents")

	return response.Documents, nil
}

// Create implements docstore.Store
func (c *Client) Create(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	payload := createRequest{
		DocumentID: uuid.NewString(),
		Data:       data,
	}

	var doc docstore.Document
	if err := c.doRequest(ctx, http.MethodPost, c.documentsPath(collection), nil, payload, &doc); err != nil {
		c.logger.Error().Err(err).Str("collection", collection).Msg("Failed to create document")
		return nil, err
	}
	return doc, nil
}

// Update implements docstore.Store
func (c *Client) Update(ctx context.Context, collection, id string, data map[string]any) (docstore.Document, error) {
	var doc docstore.Document
	endpoint := c.documentsPath(collection) + "/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodPatch, endpoint, nil, updateRequest{Data: data}, &doc); err != nil {
		c.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to update document")
		return nil, err
	}
	return doc, nil
}

// Delete implements docstore.Store
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	endpoint := c.documentsPath(collection) + "/" + url.PathEscape(id)
	if err := c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil, nil); err != nil {
		c.logger.Error().Err(err).Str("collection", collection).Str("id", id).Msg("Failed to delete document")
		return err
	}
	return nil
}

// TestConnection lists a single document of collection
func (c *Client) TestConnection(ctx context.Context, collection string) error {
	_, err := c.List(ctx, collection, docstore.Limit(1))
	return err
}

var _ docstore.Store = (*Client)(nil)
