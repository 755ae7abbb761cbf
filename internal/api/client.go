package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/schollz/gowrangler/internal/httpc"
)

// Client talks to a wrangler server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil hc uses the shared httpc client.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = httpc.Client
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

// BaseURL returns the server root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// URL resolves a server path against the base URL.
func (c *Client) URL(path string) string { return c.baseURL + path }

// AudioURL is the proxy URL for an audio path or upstream audio ref.
func (c *Client) AudioURL(path string) string {
	return c.baseURL + "/audio?path=" + url.QueryEscape(path)
}

// Upload sends an audio file as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename, contentType string, r io.Reader) (*Upload, error) {
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(filename))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL("/upload-audio"), &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out Upload
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Audio opens the audio behind path through the server proxy.
func (c *Client) Audio(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AudioURL(path), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.stream(req)
}

// EstimateSections asks for section boundaries of lyrics at a duration.
func (c *Client) EstimateSections(ctx context.Context, in SectionsRequest) ([]Section, error) {
	var out SectionsResponse
	if err := c.postJSON(ctx, "/estimate-sections", in, &out); err != nil {
		return nil, err
	}
	return out.Sections, nil
}

// EstimateDuration asks for a suggested song length.
func (c *Client) EstimateDuration(ctx context.Context, in DurationRequest) (*DurationResponse, error) {
	var out DurationResponse
	if err := c.postJSON(ctx, "/estimate-duration", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate submits a generation and returns the task id.
func (c *Client) Generate(ctx context.Context, in GenerateRequest) (string, error) {
	var out TaskRef
	if err := c.postJSON(ctx, "/generate", in, &out); err != nil {
		return "", err
	}
	if out.TaskID == "" {
		return "", fmt.Errorf("generate: empty task id")
	}
	return out.TaskID, nil
}

// Status polls a task once.
func (c *Client) Status(ctx context.Context, taskID string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("/status/"+url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	var out Status
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download opens a result download. The caller closes the body.
func (c *Client) Download(ctx context.Context, taskID string, index int, kind string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(DownloadPath(url.PathEscape(taskID), index, kind)), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.stream(req)
}

// Health returns the upstream health document as forwarded by the server.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL("/api/health"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	out := map[string]any{}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) stream(req *http.Request) (io.ReadCloser, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// checkStatus turns a non-2xx response into a *HTTPError, preferring the
// server's {"detail"} message over the status text.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	se := &HTTPError{Code: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb ErrorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Detail != "" {
		se.Detail = eb.Detail
	} else {
		se.Detail = http.StatusText(resp.StatusCode)
	}
	return se
}
