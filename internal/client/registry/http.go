package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dkovalev/assetvault/internal/common"
)

// HTTPClient implements Client against the registry's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewHTTPClient builds a client for the registry at baseURL. httpClient
// nil means http.DefaultClient.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient}
}

// SetToken installs a previously obtained session token.
func (c *HTTPClient) SetToken(token string) { c.token = token }

// Token returns the current session token (empty when logged out).
func (c *HTTPClient) Token() string { return c.token }

type errorResponse struct {
	Error string `json:"error"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/users/register", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return c.asError(resp)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, "/api/users/login", bytes.NewReader(body), "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.asError(resp)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	c.token = tr.Token
	return nil
}

func (c *HTTPClient) Check(ctx context.Context, sha256, providerID string) (*CheckResult, error) {
	q := url.Values{}
	q.Set("sha256", sha256)
	if providerID != "" {
		q.Set("provider_id", providerID)
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/assets/check?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode check response: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) Link(ctx context.Context, assetID int64, providerID string) (*UploadResult, error) {
	path := "/api/assets/" + strconv.FormatInt(assetID, 10) + "/providers/" + url.PathEscape(providerID)
	resp, err := c.do(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.asError(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode link response: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	// Stream the multipart body; a 120 MB clip never sits in memory whole.
	go func() {
		defer req.Body.Close()

		writeField := func(name, value string) {
			if value != "" {
				_ = mw.WriteField(name, value)
			}
		}
		writeField("provider_id", req.ProviderID)
		writeField("name", req.Name)
		writeField("kind", string(req.Kind))
		writeField("sha256", req.SHA256)
		writeField("source_context", req.SourceContext)

		part, err := mw.CreateFormFile("file", req.Name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, req.Body); err != nil {
			_ = pw.CloseWithError(fmt.Errorf("%w: %v", common.ErrSourceUnavailable, err))
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	resp, err := c.do(ctx, http.MethodPost, "/api/assets", pr, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.asError(resp)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request %s %s: %w", method, path, err)
	}
	return resp, nil
}

// asError converts a non-success response into a sentinel-wrapped error.
// The body's note travels with the error so the caller can record it.
func (c *HTTPClient) asError(resp *http.Response) error {
	var er errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&er)
	note := er.Error
	if note == "" {
		note = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", common.ErrorUnauthorized, note)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity, http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrUploadRejected, note)
	default:
		return fmt.Errorf("registry: %s (%d)", note, resp.StatusCode)
	}
}
