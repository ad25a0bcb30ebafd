// Package report talks to a Gotenberg instance to turn HTML into PDF.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	healthPath  = "/health"
	convertPath = "/forms/chromium/convert/html"
)

var errNoEndpoint = errors.New("report: gotenberg endpoint required")

// Page describes the printed sheet. Sizes are in inches.
type Page struct {
	Width, Height   string
	MarginTop       string
	MarginBottom    string
	PrintBackground bool
}

// A4 is the layout used for ledger statements.
var A4 = Page{Width: "8.27", Height: "11.7", MarginTop: "0.4", MarginBottom: "0.4", PrintBackground: true}

func (p Page) fields() [][2]string {
	return [][2]string{
		{"paperWidth", p.Width},
		{"paperHeight", p.Height},
		{"marginTop", p.MarginTop},
		{"marginBottom", p.MarginBottom},
		{"printBackground", fmt.Sprint(p.PrintBackground)},
	}
}

// Client converts documents through the Gotenberg chromium route.
type Client struct {
	endpoint string
	page     Page
	http     *http.Client
}

// NewClient returns a client for the Gotenberg instance at endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		page:     A4,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Ping reports whether Gotenberg answers its health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.request(ctx, http.MethodGet, healthPath, nil, "")
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}

// RenderHTML converts one HTML document into a PDF.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body, contentType, err := c.form(html)
	if err != nil {
		return nil, fmt.Errorf("report: build form: %w", err)
	}
	req, err := c.request(ctx, http.MethodPost, convertPath, body, contentType)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) form(html string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	file, err := mw.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, "", err
	}
	if _, err := io.WriteString(file, html); err != nil {
		return nil, "", err
	}
	for _, kv := range c.page.fields() {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	if c == nil || c.endpoint == "" {
		return nil, errNoEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("report: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("report: gotenberg %s returned %d: %s", req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return io.ReadAll(resp.Body)
}
