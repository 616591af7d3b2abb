package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 8 << 20
)

// ErrFeedURLNotConfigured 没有配置订阅地址，属于配置错误，重试没有意义
var ErrFeedURLNotConfigured = errors.New("没有配置排班日历的订阅地址")

// RetrievalError 获取订阅内容失败，可能是网络错误、非 2xx 响应或者响应体没有完整读取
type RetrievalError struct {
	URL        string
	StatusCode int // 没有拿到响应时为 0
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("获取排班日历 %s 失败，状态码 %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("获取排班日历 %s 失败: %v", e.URL, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

type Client struct {
	url      string
	http     *http.Client
	maxBytes int64
	logger   *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithMaxBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New 创建订阅客户端，url 允许为空，此时每次 Fetch 都返回 ErrFeedURLNotConfigured
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:      normalizeURL(url),
		http:     &http.Client{Timeout: DefaultTimeout},
		maxBytes: DefaultMaxBytes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// normalizeURL 日历应用常用 webcal:// 表示订阅，实际上就是 https
func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if rest, ok := strings.CutPrefix(url, "webcal://"); ok {
		return "https://" + rest
	}
	return url
}

// Fetch 只请求一次，不重试。响应体读取中断或超过大小限制都视为整体失败，不会返回部分内容
func (c *Client) Fetch(ctx context.Context) (string, error) {
	if c.url == "" {
		return "", ErrFeedURLNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", &RetrievalError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "text/calendar, text/plain;q=0.9, */*;q=0.5")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &RetrievalError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &RetrievalError{URL: c.url, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", &RetrievalError{URL: c.url, Err: err}
	}
	if int64(len(body)) > c.maxBytes {
		return "", &RetrievalError{URL: c.url, Err: fmt.Errorf("响应体超过 %d 字节", c.maxBytes)}
	}

	c.logger.Debug("获取排班日历成功", slog.Int("bytes", len(body)), slog.Duration("elapsed", time.Since(start)))

	return string(body), nil
}
