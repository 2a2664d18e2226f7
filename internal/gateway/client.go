package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/blues/sps/internal/config"
	"github.com/blues/sps/internal/logger"
)

// ErrUnavailable 网关超时或5xx，重试耗尽后返回
var ErrUnavailable = errors.New("支付网关暂时不可用")

// ConfirmResult 网关扣款结果
type ConfirmResult struct {
	Approved  bool   `json:"approved"`
	Reference string `json:"reference"` // 网关侧交易号
	Reason    string `json:"reason"`    // 拒绝原因
}

// QueryResult 网关订单查询结果，供对账任务使用
type QueryResult struct {
	Status    string `json:"status"` // approved, declined, unknown
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

const (
	QueryStatusApproved = "approved"
	QueryStatusDeclined = "declined"
	QueryStatusUnknown  = "unknown"
)

// Gateway 外部支付网关。实际的资金划转由网关完成，本服务只记录结果。
type Gateway interface {
	Confirm(ctx context.Context, orderRef string, amount int64) (*ConfirmResult, error)
	Query(ctx context.Context, orderRef string) (*QueryResult, error)
}

// Client HTTP网关客户端
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
}

// NewClient 创建网关客户端
func NewClient(cfg config.GatewayConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		maxRetries: retries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Confirm 请求网关对指定订单扣款
func (c *Client) Confirm(ctx context.Context, orderRef string, amount int64) (*ConfirmResult, error) {
	body := map[string]interface{}{
		"order_ref": orderRef,
		"amount":    amount,
	}

	var result ConfirmResult
	if err := c.post(ctx, "/v1/charges/confirm", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Query 查询订单在网关侧的最终状态
func (c *Client) Query(ctx context.Context, orderRef string) (*QueryResult, error) {
	var result QueryResult
	if err := c.get(ctx, "/v1/charges/"+orderRef, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post 带退避重试的POST请求，只对超时和5xx重试
func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			logger.Warn("Retrying gateway call %s (attempt %d) after %v: %v", path, attempt+1, backoff, lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		lastErr = c.do(req, out)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrUnavailable) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// get 带退避重试的GET请求
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		lastErr = c.do(req, out)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, ErrUnavailable) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// 超时和连接失败都按可重试处理
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway rejected request with status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
