// Package remote lists directories served by an HTTP tree API.
//
// The server answers GET /api/v1/tree/{path} with {"root": FileNode}, where
// the root is the requested directory and its children are the entries.
// Directories whose children were not included are returned unloaded.
package remote

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kk-code-lab/rtree/internal/tree"
)

// FileNode is one entry of the tree API.
type FileNode struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Size     int64       `json:"size"`
	ModTime  time.Time   `json:"mtime"`
	IsDir    bool        `json:"is_dir"`
	Hash     string      `json:"hash,omitempty"`
	ReadOnly bool        `json:"readonly,omitempty"`
	Locked   bool        `json:"locked,omitempty"`
	Children []*FileNode `json:"children,omitempty"`
}

// TreeResponse is the body of a successful listing.
type TreeResponse struct {
	Root *FileNode `json:"root"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Code)
}

// Config holds client settings.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	Retry      RetryConfig
	Logger     *zap.Logger
	HTTPClient *http.Client
}

// Client fetches listings from a tree API. It implements tree.Loader.
type Client struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for cfg.BaseURL.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        32,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
				// Decompression is handled explicitly below.
				DisableCompression: true,
			},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		retry:   cfg.Retry,
		log:     cfg.Logger,
		token:   cfg.Token,
	}
}

// SetToken replaces the bearer token used for requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) applyAuth(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// Label is the display name for the tree root.
func (c *Client) Label() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return c.baseURL
	}
	return u.Host
}

// Load lists the directory at path.
func (c *Client) Load(ctx context.Context, path string) (tree.Listing, error) {
	root, err := c.FetchTree(ctx, path)
	if err != nil {
		return tree.Listing{}, err
	}
	return tree.Listing{Entries: specsFromNodes(root.Children)}, nil
}

// FetchTree returns the directory node at path with whatever depth of
// children the server includes.
func (c *Client) FetchTree(ctx context.Context, path string) (*FileNode, error) {
	endpoint := c.baseURL + "/api/v1/tree"
	if path != "" {
		endpoint += "/" + escapePath(path)
	}

	return withRetry(ctx, c.retry, func() (*FileNode, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Accept-Encoding", "gzip")
		c.applyAuth(req)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Debug("tree request failed", zap.String("url", endpoint), zap.Error(err))
			return nil, Retryable(err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()

		var body io.Reader = resp.Body
		if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
			gr, err := gzip.NewReader(resp.Body)
			if err != nil {
				return nil, fmt.Errorf("gzip response: %w", err)
			}
			defer func() {
				_ = gr.Close()
			}()
			body = gr
		}

		if resp.StatusCode != http.StatusOK {
			statusErr := &StatusError{Code: resp.StatusCode, Message: readErrorMessage(body)}
			c.log.Debug("tree request rejected", zap.String("url", endpoint), zap.Int("status", resp.StatusCode))
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return nil, Retryable(statusErr)
			}
			return nil, statusErr
		}

		var out TreeResponse
		if err := json.NewDecoder(body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode tree response: %w", err)
		}
		if out.Root == nil {
			return nil, fmt.Errorf("tree response for %q has no root", path)
		}
		return out.Root, nil
	})
}

func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var er errorResponse
	if json.Unmarshal(data, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(data))
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func specsFromNodes(nodes []*FileNode) []tree.NodeSpec {
	specs := make([]tree.NodeSpec, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Name == "" {
			continue
		}
		data := *n
		data.Children = nil
		spec := tree.NodeSpec{
			Name:        n.Name,
			Data:        data,
			Permissions: tree.Access{Read: !n.Locked, Write: !n.ReadOnly && !n.Locked},
		}
		if n.IsDir {
			spec.Children = specsFromNodes(n.Children)
		}
		specs = append(specs, spec)
	}
	return specs
}
