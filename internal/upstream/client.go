package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/trolley-watch/internal/logger"
	"github.com/trolley-watch/internal/models"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 15 * time.Second

// Options 上游客户端配置
type Options struct {
	BaseURL          string
	Timeout          time.Duration
	BreakerFailures  uint32        // 连续失败多少次后熔断
	BreakerOpenFor   time.Duration // 熔断持续时间
	BreakerHalfOpen  uint32        // 半开状态允许的探测请求数
	DisableTransport bool          // 不包装 otelhttp（测试用）
}

// Client POS 服务端客户端，负责快照拉取与核验同步
type Client struct {
	baseURL     string
	http        *http.Client
	credentials CredentialProvider
	breaker     *gobreaker.CircuitBreaker[[]byte]
}

// NewClient 创建上游客户端
func NewClient(opts Options, credentials CredentialProvider) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	openFor := opts.BreakerOpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	halfOpen := opts.BreakerHalfOpen
	if halfOpen == 0 {
		halfOpen = 1
	}

	var transport http.RoundTripper = http.DefaultTransport
	if !opts.DisableTransport {
		transport = otelhttp.NewTransport(transport)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "pos-upstream",
		MaxRequests: halfOpen,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// 业务 404 与调用方取消（监控视图关闭）不计入熔断失败
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrCartNotFound) ||
				errors.Is(err, ErrAuditNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("upstream_breaker_state_changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		http:        &http.Client{Timeout: timeout, Transport: transport},
		credentials: credentials,
		breaker:     breaker,
	}
}

type fetchCartResponse struct {
	Cart *models.Cart `json:"cart"`
}

type syncAuditRequest struct {
	Products []models.CartLine `json:"products"`
}

// FetchCart 拉取购物车完整快照
func (c *Client) FetchCart(ctx context.Context, cartID string) (*models.Cart, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return nil, fmt.Errorf("%w: empty cart id", ErrCartNotFound)
	}
	body, err := c.do(ctx, http.MethodGet, "/pos/smart-cart/"+url.PathEscape(cartID), nil, ErrCartNotFound)
	if err != nil {
		return nil, err
	}
	var resp fetchCartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	if resp.Cart == nil {
		return nil, fmt.Errorf("%w: cart field missing", ErrResponseInvalid)
	}
	return resp.Cart, nil
}

// SyncAudit 提交编辑后的核验商品完整列表
func (c *Client) SyncAudit(ctx context.Context, auditID string, lines []models.CartLine) error {
	auditID = strings.TrimSpace(auditID)
	if auditID == "" {
		return fmt.Errorf("%w: empty audit id", ErrResponseInvalid)
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	payload, err := json.Marshal(syncAuditRequest{Products: lines})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/pos/smart-cart/audit-sync/"+url.PathEscape(auditID), payload, ErrAuditNotFound)
	return err
}

// do 发送请求，notFound 为该接口 404 对应的错误
func (c *Client) do(ctx context.Context, method, path string, payload []byte, notFound error) ([]byte, error) {
	token := ""
	if c.credentials != nil {
		value, err := c.credentials.Credential(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthMissing, err)
		}
		token = strings.TrimSpace(value)
	}
	if token == "" {
		logger.Warnw("upstream_request_skipped", "reason", "credential_missing", "path", path)
		return nil, ErrAuthMissing
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, method, path, token, payload, notFound)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
		}
		return nil, err
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path, token string, payload []byte, notFound error) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, notFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http status %d", ErrNetworkFailure, resp.StatusCode)
	}
	return body, nil
}
