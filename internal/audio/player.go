// 本文件用于告警音频播放
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"flood-watch/internal/logger"
)

const playTimeout = 30 * time.Second

// Player 通过外部播放器播放告警音频
// 音频缺失或播放失败只记录日志 不影响告警周期
type Player struct {
	command string
	runner  func(ctx context.Context, command string, args ...string) error
}

// NewPlayer 创建音频播放器 默认使用 ffplay
func NewPlayer() *Player {
	return &Player{
		command: "ffplay",
		runner:  runCommand,
	}
}

// Play 播放指定音频文件
func (p *Player) Play(ctx context.Context, filePath string) error {
	if p == nil || filePath == "" {
		return nil
	}
	if _, err := os.Stat(filePath); err != nil {
		// 音频缺失按跳过处理 与告警主流程解耦
		logger.Warn("告警音频缺失 跳过播放: %s", filePath)
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, playTimeout)
	defer cancel()

	logger.Info("播放告警音频: %s", filePath)
	if err := p.runner(ctx, p.command, "-nodisp", "-autoexit", "-loglevel", "quiet", filePath); err != nil {
		return fmt.Errorf("播放告警音频失败: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, command string, args ...string) error {
	cmd := exec.CommandContext(ctx, command, args...)
	return cmd.Run()
}
