package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flood-watch/internal/logger"
)

const webhookURLFormat = "https://qyapi.weixin.qq.com/cgi-bin/webhook/send?key=%s"

// Robot 企业微信机器人
type Robot struct {
	robotKey string
}

type message struct {
	MsgType  string   `json:"msgtype"`
	Markdown markdown `json:"markdown"`
}

type markdown struct {
	Content string `json:"content"`
}

type response struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// NewRobot 创建新的企业微信机器人。
func NewRobot(robotKey string) *Robot {
	return &Robot{
		robotKey: robotKey,
	}
}

// SendMarkdown 发送 Markdown 消息到企业微信机器人。
func (r *Robot) SendMarkdown(ctx context.Context, content string) error {
	if r.robotKey == "" {
		return fmt.Errorf("企业微信机器人 key 为空")
	}
	if content == "" {
		return fmt.Errorf("消息内容不能为空")
	}

	msg := message{
		MsgType:  "markdown",
		Markdown: markdown{Content: content},
	}
	jsonReq, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	if err := r.sendRequest(ctx, fmt.Sprintf(webhookURLFormat, r.robotKey), jsonReq); err != nil {
		return err
	}

	logger.Info("企业微信机器人消息发送成功")
	return nil
}

func (r *Robot) sendRequest(ctx context.Context, webhookURL string, payload []byte) error {
	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ctx != nil {
		req = req.WithContext(ctx)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("企业微信机器人 HTTP 状态码异常: %d", resp.StatusCode)
	}

	var responseBody response
	if err := json.NewDecoder(resp.Body).Decode(&responseBody); err != nil {
		return fmt.Errorf("解析企业微信响应失败: %w", err)
	}
	if responseBody.ErrCode != 0 {
		return fmt.Errorf("企业微信机器人返回错误: %d %s", responseBody.ErrCode, responseBody.ErrMsg)
	}
	return nil
}
