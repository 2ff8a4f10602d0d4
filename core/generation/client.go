package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ReadTune/logger"
	"ReadTune/model"
)

// ClientConfig contains configuration for the generator client.
type ClientConfig struct {
	APIBaseURL string
	APIKey     string
}

// Client 外部音乐生成服务的客户端
// 本服务只负责触发任务和观察状态，生成本身完全由外部系统执行
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new generator client.
func NewClient(config *ClientConfig) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// generateRequest 生成任务请求体
type generateRequest struct {
	TrackID string `json:"trackId"`
	Prompt  string `json:"prompt"`
	Genre   string `json:"genre,omitempty"`
	Mood    string `json:"mood,omitempty"`
	Tempo   string `json:"tempo,omitempty"`
}

// BuildPrompt 根据日志内容拼出生成提示词
// 摘抄优先，情绪标签作为氛围描述附在末尾
func BuildPrompt(log *model.ReadingLog) string {
	var sb strings.Builder
	sb.WriteString("Background music for a reading journal entry.")
	if log.Quote != "" {
		sb.WriteString(" Quote: ")
		sb.WriteString(log.Quote)
	}
	if log.Memo != "" {
		sb.WriteString(" Thoughts: ")
		sb.WriteString(log.Memo)
	}
	if len(log.Emotions) > 0 {
		sb.WriteString(" Mood: ")
		sb.WriteString(strings.Join(log.Emotions, ", "))
	}
	return sb.String()
}

// TriggerGeneration 触发一次生成任务
// 对调用方是 fire-and-forget：失败只记日志，状态推进依赖后续轮询与落盘监听
func (c *Client) TriggerGeneration(track *model.MusicTrack) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := c.doTrigger(ctx, track); err != nil {
			logger.Warn("触发音乐生成失败",
				logger.String("trackId", track.ID),
				logger.ErrorField(err))
		}
	}()
}

func (c *Client) doTrigger(ctx context.Context, track *model.MusicTrack) error {
	reqBody := generateRequest{
		TrackID: track.ID,
		Prompt:  track.Prompt,
		Genre:   track.Genre,
		Mood:    track.Mood,
		Tempo:   track.Tempo,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIBaseURL+"/generate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("generator returned status %d: %s", resp.StatusCode, string(body))
	}

	logger.Info("音乐生成任务已提交",
		logger.String("trackId", track.ID),
		logger.Int("statusCode", resp.StatusCode))
	return nil
}
