package apix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"somp/ordersync/pkg/errorx"
	"somp/ordersync/pkg/logger"
)

// TokenSource 提供当前会话的 Bearer Token（为空表示未登录）
type TokenSource func() string

// Client SOMP 后端 REST 客户端
type Client struct {
	baseURL        string
	httpClient     *http.Client
	token          TokenSource
	onUnauthorized func()
	log            logger.Logger
}

// Option 客户端可选配置
type Option func(*Client)

// WithTokenSource 设置 Token 来源
func WithTokenSource(fn TokenSource) Option {
	return func(c *Client) {
		c.token = fn
	}
}

// WithUnauthorizedHook 设置 401 回调（任意请求收到 401 都会触发）
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithHTTPClient 替换底层 HTTP 客户端（测试用）
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient 创建 REST 客户端
func NewClient(baseURL string, timeout time.Duration, log logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do 发起请求并解析响应
// 错误分类：网络故障/5xx → Transient，401 → Unauthorized（触发回调），
// 其余 4xx → Conflict（服务端消息原样透传）
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errorx.Wrap(fmt.Errorf("marshal request failed: %w", err))
		}
		reader = bytes.NewReader(data)
	}

	// 每次请求生成 trace_id，贯穿日志
	traceID := uuid.New().String()
	ctx = context.WithValue(ctx, "trace_id", traceID)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errorx.Wrap(fmt.Errorf("build request failed: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", traceID)
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debugf(ctx, "[apix] %s %s", method, path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf(ctx, "[apix] %s %s network error: %v", method, path, err)
		return errorx.Transient(err, "network request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorx.Transient(err, "read response failed")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return errorx.Wrap(fmt.Errorf("unmarshal response failed: %w", err))
			}
		}
		return nil

	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warnf(ctx, "[apix] %s %s unauthorized", method, path)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return errorx.Unauthorized(serverMessage(respBody, resp.StatusCode))

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 业务拒绝，消息原样透传
		msg := serverMessage(respBody, resp.StatusCode)
		c.log.Warnf(ctx, "[apix] %s %s rejected (%d): %s", method, path, resp.StatusCode, msg)
		return errorx.Conflict(resp.StatusCode, msg)

	default:
		msg := serverMessage(respBody, resp.StatusCode)
		c.log.Errorf(ctx, "[apix] %s %s server error (%d): %s", method, path, resp.StatusCode, msg)
		return errorx.Transient(fmt.Errorf("http %d", resp.StatusCode), msg)
	}
}

// serverMessage 提取服务端错误消息
// 依次尝试 {"message": ...} / {"error": ...}，都没有则退回状态文本
func serverMessage(body []byte, statusCode int) string {
	var envelope struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 256 {
		return text
	}
	return http.StatusText(statusCode)
}
