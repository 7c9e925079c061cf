// Package ledger 提供外部身份与计量后端的 REST 客户端
// 后端为 PostgREST 风格接口：表操作走 /rest/v1，二进制对象走 /storage/v1
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/entity"
)

var tracer = otel.Tracer("ledger")

const voicesBucket = "voices"

// Client 身份与计量后端客户端
// 同时实现 KeyValidator、UsageLedger 与 VoiceProfileStore 三个端口
type Client struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

// NewClient 创建后端客户端
func NewClient(cfg *config.LedgerConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		serviceKey: cfg.ServiceKey,
		http:       &http.Client{Timeout: timeout},
	}
}

type apiKeyRow struct {
	APIKey   string `json:"api_key"`
	IsActive bool   `json:"is_active"`
}

type voiceProfileRow struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Label     string    `json:"label"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate 校验租户凭证是否存在且激活
func (c *Client) Validate(ctx context.Context, apiKey string) (bool, error) {
	ctx, span := tracer.Start(ctx, "ledger.Validate")
	defer span.End()

	if apiKey == "" {
		return false, nil
	}

	query := url.Values{}
	query.Set("select", "api_key,is_active")
	query.Set("api_key", "eq."+apiKey)
	query.Set("limit", "1")

	var rows []apiKeyRow
	if err := c.getJSON(ctx, "/rest/v1/api_keys?"+query.Encode(), &rows); err != nil {
		span.RecordError(err)
		return false, err
	}
	return len(rows) > 0 && rows[0].IsActive, nil
}

// Record 写入一条用量事件
func (c *Client) Record(ctx context.Context, evt *entity.UsageEvent) error {
	ctx, span := tracer.Start(ctx, "ledger.Record",
		trace.WithAttributes(attribute.Int("usage.chars", evt.Chars)))
	defer span.End()

	if evt.Tenant == "" {
		return nil
	}
	return c.postJSON(ctx, "/rest/v1/usage_logs", evt, nil)
}

// List 返回租户的音色档案
func (c *Client) List(ctx context.Context, tenant string) ([]*entity.VoiceProfile, error) {
	ctx, span := tracer.Start(ctx, "ledger.ListVoiceProfiles")
	defer span.End()

	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", "eq."+tenant)

	var rows []voiceProfileRow
	if err := c.getJSON(ctx, "/rest/v1/voice_profiles?"+query.Encode(), &rows); err != nil {
		span.RecordError(err)
		return nil, err
	}

	profiles := make([]*entity.VoiceProfile, 0, len(rows))
	for _, row := range rows {
		profiles = append(profiles, &entity.VoiceProfile{
			ID:        row.ID,
			Tenant:    row.UserID,
			Label:     row.Label,
			CreatedAt: row.CreatedAt,
		})
	}
	return profiles, nil
}

// Create 上传声纹样本并登记档案
// 样本原始字节存入对象桶，推理侧在合成时据此派生说话人向量
func (c *Client) Create(ctx context.Context, tenant, label string, sample []byte, contentType string) (*entity.VoiceProfile, error) {
	ctx, span := tracer.Start(ctx, "ledger.CreateVoiceProfile",
		trace.WithAttributes(attribute.Int("sample.bytes", len(sample))))
	defer span.End()

	voiceID := uuid.New().String()
	objectPath := fmt.Sprintf("%s/%s.bin", tenant, voiceID)

	if err := c.uploadObject(ctx, objectPath, sample, contentType); err != nil {
		span.RecordError(err)
		return nil, err
	}

	row := voiceProfileRow{
		ID:     voiceID,
		UserID: tenant,
		Label:  label,
		Path:   objectPath,
	}
	if err := c.postJSON(ctx, "/rest/v1/voice_profiles", row, nil); err != nil {
		span.RecordError(err)
		return nil, err
	}

	return &entity.VoiceProfile{
		ID:        voiceID,
		Tenant:    tenant,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Delete 移除档案与对应的样本对象
func (c *Client) Delete(ctx context.Context, tenant, voiceID string) error {
	ctx, span := tracer.Start(ctx, "ledger.DeleteVoiceProfile")
	defer span.End()

	objectPath := fmt.Sprintf("%s/%s.bin", tenant, voiceID)
	if err := c.deleteObject(ctx, objectPath); err != nil {
		span.RecordError(err)
		return err
	}

	query := url.Values{}
	query.Set("user_id", "eq."+tenant)
	query.Set("id", "eq."+voiceID)
	return c.do(ctx, http.MethodDelete, "/rest/v1/voice_profiles?"+query.Encode(), nil, "", nil)
}

// LoadEmbedding 下载声纹样本字节，档案不存在时返回 (nil, nil)
func (c *Client) LoadEmbedding(ctx context.Context, tenant, voiceID string) (entity.SpeakerEmbedding, error) {
	ctx, span := tracer.Start(ctx, "ledger.LoadEmbedding")
	defer span.End()

	objectPath := fmt.Sprintf("%s/%s.bin", tenant, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/storage/v1/object/"+voicesBucket+"/"+objectPath, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("load embedding: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) uploadObject(ctx context.Context, path string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.do(ctx, http.MethodPost,
		"/storage/v1/object/"+voicesBucket+"/"+path, bytes.NewReader(data), contentType, nil)
}

func (c *Client) deleteObject(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete,
		"/storage/v1/object/"+voicesBucket+"/"+path, nil, "", nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}
