// 本文件用于监听水位阈值表文件的变化，变化稳定后热加载新阈值。
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"flood-watch/internal/flood"
	"flood-watch/internal/logger"
)

const (
	// 编辑器保存往往触发多次写事件 等它静默后再加载
	reloadDebounce = 500 * time.Millisecond
)

// ThresholdSink 阈值热加载的接收方
type ThresholdSink interface {
	UpdateThresholds(thresholds *flood.Thresholds, source string) error
}

// ThresholdWatcher 阈值文件监控器
type ThresholdWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	sink     ThresholdSink

	mu          sync.Mutex
	reloadTimer *time.Timer
	closed      bool
}

// NewThresholdWatcher 创建阈值文件监控器 监听文件所在目录以覆盖重命名式保存
func NewThresholdWatcher(filePath string, sink ThresholdSink) (*ThresholdWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ThresholdWatcher{
		watcher:  watcher,
		filePath: filepath.Clean(filePath),
		sink:     sink,
	}, nil
}

// Start 启动监控
func (tw *ThresholdWatcher) Start() error {
	dir := filepath.Dir(tw.filePath)
	if err := tw.watcher.Add(dir); err != nil {
		logger.Error("添加阈值目录监控失败: %s, 错误: %v", dir, err)
		return err
	}

	go tw.handleEvents()

	logger.Info("阈值文件监控已启动: %s", tw.filePath)
	return nil
}

// Close 关闭监控器
func (tw *ThresholdWatcher) Close() error {
	tw.mu.Lock()
	tw.closed = true
	if tw.reloadTimer != nil {
		tw.reloadTimer.Stop()
		tw.reloadTimer = nil
	}
	tw.mu.Unlock()
	return tw.watcher.Close()
}

func (tw *ThresholdWatcher) handleEvents() {
	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handleEvent(event)
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("阈值文件监控错误: %v", err)
		}
	}
}

func (tw *ThresholdWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != tw.filePath {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	logger.Debug("收到阈值文件事件: %s, 操作: %s", event.Name, event.Op.String())
	tw.scheduleReload()
}

// scheduleReload 推迟重载 多次连续写入只触发一次
func (tw *ThresholdWatcher) scheduleReload() {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.closed {
		return
	}
	if tw.reloadTimer != nil {
		tw.reloadTimer.Stop()
	}
	tw.reloadTimer = time.AfterFunc(reloadDebounce, tw.reload)
}

func (tw *ThresholdWatcher) reload() {
	if _, err := os.Stat(tw.filePath); err != nil {
		logger.Warn("阈值文件不可读，保持当前阈值: %s, 错误: %v", tw.filePath, err)
		return
	}

	thresholds, err := flood.LoadThresholds(tw.filePath)
	if err != nil {
		logger.Error("阈值文件加载失败，保持当前阈值: %v", err)
		return
	}

	if err := tw.sink.UpdateThresholds(thresholds, tw.filePath); err != nil {
		logger.Error("阈值热加载失败，保持当前阈值: %v", err)
		return
	}
	logger.Info("阈值热加载完成: 版本 %d, 共 %d 级", thresholds.Version, len(thresholds.Entries))
}
