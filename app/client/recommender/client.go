package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"travelchat/app/config"
	"travelchat/app/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const RequestIDHeader = "X-Request-ID"

// Gateway is the remote boundary of the recommendation service.
// It holds no state and never retries.
type Gateway interface {
	Create(ctx context.Context, text string, numPlaces int) (*model.Recommendation, error)
	List(ctx context.Context, limit, offset int) ([]model.Recommendation, error)
	Remove(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*model.Recommendation, error)
	Search(ctx context.Context, query string, limit int) ([]model.Recommendation, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

var _ Gateway = (*Client)(nil)

type Client struct {
	client   *http.Client
	baseURL  string
	validate *validator.Validate
}

type createRequest struct {
	Text      string `json:"text"`
	NumPlaces int    `json:"num_places"`
}

// New builds a client for the recommendations resource rooted at baseURL.
func New(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		panic("baseURL must not be empty")
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// NewClient wires the client from config. An http.RoundTripper registered in the
// injector replaces the network transport.
func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	httpClient := &http.Client{
		Timeout: cfg.API.Timeout,
	}
	if transport, err := do.Invoke[http.RoundTripper](di); err == nil {
		httpClient.Transport = transport
	}

	return New(httpClient, cfg.API.BaseURL), nil
}

func (c *Client) Create(ctx context.Context, text string, numPlaces int) (*model.Recommendation, error) {
	var result model.Recommendation

	payload := createRequest{Text: text, NumPlaces: numPlaces}
	if err := c.call(ctx, http.MethodPost, "/", nil, payload, &result); err != nil {
		return nil, err
	}

	if err := c.check(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) List(ctx context.Context, limit, offset int) ([]model.Recommendation, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	return c.callList(ctx, "/history", query)
}

func (c *Client) Remove(ctx context.Context, id int) error {
	return c.call(ctx, http.MethodDelete, "/"+strconv.Itoa(id), nil, nil, nil)
}

func (c *Client) Get(ctx context.Context, id int) (*model.Recommendation, error) {
	var result model.Recommendation

	if err := c.call(ctx, http.MethodGet, "/"+strconv.Itoa(id), nil, nil, &result); err != nil {
		return nil, err
	}

	if err := c.check(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]model.Recommendation, error) {
	values := url.Values{}
	values.Set("q", query)
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}

	return c.callList(ctx, "/search/", values)
}

func (c *Client) Stats(ctx context.Context) (*model.Stats, error) {
	var result model.Stats

	if err := c.call(ctx, http.MethodGet, "/statistics/", nil, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) callList(ctx context.Context, path string, query url.Values) ([]model.Recommendation, error) {
	var result []model.Recommendation

	if err := c.call(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return nil, err
	}

	if result == nil {
		return nil, oops.In("recommender").
			With("path", path).
			Wrapf(ErrRequestFailed, "expected a list, got null")
	}

	for i := range result {
		if err := c.check(&result[i]); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// check rejects bodies that decoded but do not describe a usable entity.
func (c *Client) check(rec *model.Recommendation) error {
	if err := c.validate.Struct(rec); err != nil {
		return oops.In("recommender").
			With("id", rec.ID).
			Wrapf(fmt.Errorf("%w: %w", ErrRequestFailed, err), "malformed recommendation")
	}

	if rec.Exclude == nil {
		rec.Exclude = []string{}
	}

	return nil
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	errs := oops.In("recommender").With(
		"method", method,
		"path", path,
		"request_id", requestID,
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrapf(fmt.Errorf("%w: %w", ErrNetwork, err), "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := ErrRequestFailed
		if resp.StatusCode == http.StatusNotFound {
			kind = fmt.Errorf("%w: %w", ErrRequestFailed, ErrNotFound)
		}

		return errs.
			With("status", resp.StatusCode, "detail", extractDetail(resp.Body)).
			Wrapf(kind, "%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrapf(fmt.Errorf("%w: %w", ErrRequestFailed, err), "failed to decode response")
	}

	return nil
}
