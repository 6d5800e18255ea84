package polymarket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

func observeRESTLatency(endpoint string, start time.Time) {
	RESTRequestDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// l2Headers builds the POLY_* headers the CLOB requires on every
// authenticated request: an HMAC-SHA256 over timestamp+method+path+body,
// keyed by the API secret (URL-safe base64, matching the CLOB's own
// Python client).
func (c *Client) l2Headers(method, requestPath string, body []byte) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	secretBytes, err := base64.URLEncoding.DecodeString(c.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(timestamp + method + requestPath + string(body)))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	return map[string]string{
		"POLY_API_KEY":    c.cfg.APIKey,
		"POLY_SIGNATURE":  signature,
		"POLY_TIMESTAMP":  timestamp,
		"POLY_PASSPHRASE": c.cfg.Passphrase,
		"POLY_ADDRESS":    c.address,
	}, nil
}

func (c *Client) signAndPost(ctx context.Context, requestPath string, body any, out any) error {
	defer observeRESTLatency(requestPath, time.Now())
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	headers, err := c.l2Headers("POST", requestPath, reqBody)
	if err != nil {
		return err
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(out).
		Post(requestPath)
	if err != nil {
		return fmt.Errorf("post %s: %w", requestPath, err)
	}
	if resp.IsError() {
		return fmt.Errorf("post %s: status %d: %s", requestPath, resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *Client) signAndGet(ctx context.Context, requestPath string, out any) error {
	defer observeRESTLatency(requestPath, time.Now())
	headers, err := c.l2Headers("GET", requestPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetResult(out).
		Get(requestPath)
	if err != nil {
		return fmt.Errorf("get %s: %w", requestPath, err)
	}
	if resp.IsError() {
		return fmt.Errorf("get %s: status %d: %s", requestPath, resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *Client) signAndDelete(ctx context.Context, requestPath string, body any, out any) error {
	defer observeRESTLatency(requestPath, time.Now())
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	headers, err := c.l2Headers("DELETE", requestPath, reqBody)
	if err != nil {
		return err
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		SetResult(out).
		Delete(requestPath)
	if err != nil {
		return fmt.Errorf("delete %s: %w", requestPath, err)
	}
	if resp.IsError() {
		return fmt.Errorf("delete %s: status %d: %s", requestPath, resp.StatusCode(), resp.String())
	}
	return nil
}

// gammaGet performs an unauthenticated GET against the Gamma API,
// used for market discovery which carries no trading credentials.
func (c *Client) gammaGet(ctx context.Context, requestPath string, params url.Values, out any) error {
	defer observeRESTLatency(requestPath, time.Now())
	req := c.gamma.R().SetContext(ctx).SetResult(out)
	if params != nil {
		req.SetQueryParamsFromValues(params)
	}
	resp, err := req.Get(requestPath)
	if err != nil {
		return fmt.Errorf("get %s: %w", requestPath, err)
	}
	if resp.IsError() {
		return fmt.Errorf("get %s: status %d: %s", requestPath, resp.StatusCode(), resp.String())
	}
	return nil
}
