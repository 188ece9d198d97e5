package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 5 * time.Second
	maxErrorBody   = 512
)

// Webhook Slack Incoming Webhook 客户端 只投递一次 不做重试
type Webhook struct {
	url    string
	client *http.Client
}

// Message 表示 webhook 的 JSON 负载
type Message struct {
	Attachments []Attachment `json:"attachments"`
}

// Attachment 表示带颜色条的消息块
type Attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Fields []Field `json:"fields"`
	Footer string  `json:"footer,omitempty"`
	TS     int64   `json:"ts"`
}

// Field 表示消息块中的键值字段
type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewWebhook 创建 webhook 客户端 timeout 非正数时使用默认值
func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Webhook{
		url:    strings.TrimSpace(url),
		client: &http.Client{Timeout: timeout},
	}
}

// URL 返回投递地址
func (w *Webhook) URL() string {
	return w.url
}

// Send 发送消息 非 2xx 响应视为失败
func (w *Webhook) Send(ctx context.Context, msg Message) error {
	if w.url == "" {
		return fmt.Errorf("slack webhook 为空")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化 slack 消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("slack webhook HTTP 状态码异常: %d %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
