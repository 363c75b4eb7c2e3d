// 本文件用于告警通知的组装与多渠道发送
package flood

import (
	"context"
	"fmt"
	"strings"

	"flood-watch/internal/dingtalk"
	"flood-watch/internal/email"
	"flood-watch/internal/wechat"
)

// NotifierSet 组合钉钉 企业微信与邮件通知
type NotifierSet struct {
	DingTalk *dingtalk.Robot
	WeChat   *wechat.Robot
	Email    *email.Sender
}

// Notify 发送告警通知 返回第一个失败的渠道错误
func (n *NotifierSet) Notify(ctx context.Context, payload NotifyPayload) error {
	if n == nil {
		return nil
	}
	var firstErr error
	if n.DingTalk != nil {
		if err := n.DingTalk.SendMarkdown(ctx, buildTitle(payload), buildMarkdown(payload)); err != nil {
			firstErr = err
		}
	}
	if n.WeChat != nil {
		if err := n.WeChat.SendMarkdown(ctx, buildMarkdown(payload)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if n.Email != nil {
		if err := n.Email.SendMessage(ctx, buildSubject(payload), buildEmailBody(payload)); err != nil {
			if email.IsQuitError(err) {
				return firstErr
			}
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Empty 判断是否没有配置任何通知渠道
func (n *NotifierSet) Empty() bool {
	return n == nil || (n.DingTalk == nil && n.WeChat == nil && n.Email == nil)
}

// buildTitle 用于构建后续流程所需的数据
func buildTitle(payload NotifyPayload) string {
	return fmt.Sprintf("水位告警 %s", strings.ToUpper(string(payload.Level)))
}

// buildSubject 用于构建后续流程所需的数据
func buildSubject(payload NotifyPayload) string {
	return fmt.Sprintf("水位告警通知 [%s]", strings.ToUpper(string(payload.Level)))
}

// buildMarkdown 用于构建后续流程所需的数据
func buildMarkdown(payload NotifyPayload) string {
	return fmt.Sprintf("### 水位告警详情\n\n- 级别: %s\n- 水位: %.2f cm\n- 探测距离: %.2f cm\n- 连续确认: %d 次\n- 时间: %s",
		strings.ToLower(string(payload.Level)),
		payload.WaterHeightCM,
		payload.DistanceCM,
		payload.Confirmations,
		formatTime(payload.Time),
	)
}

// buildEmailBody 用于构建后续流程所需的数据
func buildEmailBody(payload NotifyPayload) string {
	return fmt.Sprintf("级别: %s\n水位: %.2f cm\n探测距离: %.2f cm\n连续确认: %d 次\n时间: %s\n",
		strings.ToLower(string(payload.Level)),
		payload.WaterHeightCM,
		payload.DistanceCM,
		payload.Confirmations,
		formatTime(payload.Time),
	)
}
