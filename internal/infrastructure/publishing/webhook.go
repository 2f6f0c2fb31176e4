// Package publishing 实现各博客平台的发布适配器
package publishing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/domain/entity"
)

// WebhookAdapter 将文章以 JSON 推送到平台桥接服务
type WebhookAdapter struct {
	platform string
	endpoint string
	token    string
	tags     []string
	client   *http.Client
}

type webhookPayload struct {
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Slug      string   `json:"slug"`
	Tags      []string `json:"tags,omitempty"`
	SourceRef string   `json:"source_ref,omitempty"`
}

type webhookResponse struct {
	ID string `json:"id"`
}

// NewWebhookAdapter 创建 Webhook 发布适配器
func NewWebhookAdapter(platform, endpoint, token string, tags []string, client *http.Client) *WebhookAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookAdapter{
		platform: platform,
		endpoint: endpoint,
		token:    token,
		tags:     tags,
		client:   client,
	}
}

// Platform 平台名称
func (a *WebhookAdapter) Platform() string { return a.platform }

// Publish 推送文章，响应体中的 id 作为外部文章 ID
func (a *WebhookAdapter) Publish(ctx context.Context, req *scheduler.PublishRequest) (*entity.PublishResult, error) {
	body, err := json.Marshal(&webhookPayload{
		Title:     req.Title,
		Content:   req.Content,
		Slug:      req.Slug,
		Tags:      a.tags,
		SourceRef: req.SourceRef,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", req.JobID)
	if a.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", a.platform, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("%s responded %d: %s", a.platform, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode %s response: %w", a.platform, err)
	}
	return &entity.PublishResult{
		Platform:       a.platform,
		Success:        true,
		ExternalPostID: out.ID,
	}, nil
}
