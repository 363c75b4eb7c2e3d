package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"flood-watch/internal/audio"
	"flood-watch/internal/config"
	"flood-watch/internal/dingtalk"
	"flood-watch/internal/email"
	"flood-watch/internal/flood"
	"flood-watch/internal/logger"
	"flood-watch/internal/models"
	"flood-watch/internal/oss"
	"flood-watch/internal/sensor"
	"flood-watch/internal/store"
	"flood-watch/internal/watcher"
	"flood-watch/internal/wechat"
)

// FloodService 水位监测服务
// 以组合方式把采样 判定 确认 派发各组件注入到 Service 中
// NewFloodService 负责初始化和连接它们
type FloodService struct {
	config     *models.Config
	alertStore *store.AlertStore
	ossClient  *oss.Client
	dispatcher *flood.Dispatcher
	monitor    *flood.Monitor
	state      *flood.State
	watcher    *watcher.ThresholdWatcher

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFloodService 构造并初始化 FloodService 的所有依赖
func NewFloodService(cfg *models.Config) (*FloodService, error) {
	// 初始化告警存储
	alertStore, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("初始化告警存储失败: %v", err)
	}

	// 初始化传感器
	distancer, err := buildDistancer(cfg)
	if err != nil {
		alertStore.Close()
		return nil, err
	}

	readingDelay, _ := config.ParseDuration(cfg.ReadingDelay, 50*time.Millisecond)
	sampler, err := sensor.NewSampler(distancer, sensor.SamplerOptions{
		Readings:     cfg.SamplesPerCycle,
		MinCM:        cfg.MinDistanceCM,
		MaxCM:        cfg.MaxDistanceCM,
		ReadingDelay: readingDelay,
	})
	if err != nil {
		alertStore.Close()
		return nil, fmt.Errorf("初始化采样器失败: %v", err)
	}

	// 初始化水位阈值表 无效的阈值表属于致命启动失败
	classifier, err := buildClassifier(cfg)
	if err != nil {
		alertStore.Close()
		return nil, err
	}

	minAlert, _ := flood.ParseLevel(cfg.MinAlertLevel)
	tracker, err := flood.NewTracker(cfg.ConfirmCount, minAlert)
	if err != nil {
		alertStore.Close()
		return nil, fmt.Errorf("初始化确认器失败: %v", err)
	}

	// 初始化通知渠道与 OSS 归档客户端
	notifier := buildNotifier(cfg)
	var ossClient *oss.Client
	if strings.TrimSpace(cfg.Bucket) != "" {
		ossClient, err = oss.NewClient(cfg)
		if err != nil {
			alertStore.Close()
			return nil, fmt.Errorf("初始化OSS客户端失败: %v", err)
		}
	}

	cooldown, _ := config.ParseDuration(cfg.Cooldown, 10*time.Second)
	async := cfg.DispatchAsync != nil && *cfg.DispatchAsync
	dispatcher := flood.NewDispatcher(flood.DispatcherOptions{
		Store:         alertStore,
		Audio:         audio.NewPlayer(),
		AudioFile:     cfg.AudioFile,
		Notifier:      notifier,
		Cooldown:      cooldown,
		Confirmations: cfg.ConfirmCount,
		Async:         async,
		Workers:       cfg.DispatchWorkers,
	})

	pollInterval, _ := config.ParseDuration(cfg.PollInterval, 2*time.Second)
	state := flood.NewState()
	monitor := flood.NewMonitor(flood.MonitorOptions{
		Sampler:           sampler,
		Classifier:        classifier,
		Tracker:           tracker,
		Dispatcher:        dispatcher,
		State:             state,
		ContainerHeightCM: cfg.ContainerHeightCM,
		PollInterval:      pollInterval,
	})

	service := &FloodService{
		config:     cfg,
		alertStore: alertStore,
		ossClient:  ossClient,
		dispatcher: dispatcher,
		monitor:    monitor,
		state:      state,
	}

	// 初始化阈值文件监控器
	if cfg.ThresholdsReload && strings.TrimSpace(cfg.ThresholdsFile) != "" {
		thresholdWatcher, err := watcher.NewThresholdWatcher(cfg.ThresholdsFile, monitor)
		if err != nil {
			alertStore.Close()
			return nil, fmt.Errorf("初始化阈值文件监控器失败: %v", err)
		}
		service.watcher = thresholdWatcher
	}

	return service, nil
}

// Start 启动监控循环与阈值监听
func (fs *FloodService) Start() error {
	logger.Info("启动水位监测服务...")

	if fs.watcher != nil {
		if err := fs.watcher.Start(); err != nil {
			return fmt.Errorf("启动阈值文件监控失败: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	fs.cancel = cancel
	fs.done = make(chan struct{})
	go func() {
		defer close(fs.done)
		fs.monitor.Run(ctx)
	}()

	logger.Info("水位监测服务启动成功")
	return nil
}

// Stop 停止服务 等待监控循环退出后再关闭协作方
func (fs *FloodService) Stop() error {
	logger.Info("停止水位监测服务...")

	if fs.cancel != nil {
		fs.cancel()
	}
	if fs.done != nil {
		<-fs.done
	}
	if fs.watcher != nil {
		if err := fs.watcher.Close(); err != nil {
			logger.Error("关闭阈值文件监控器失败: %v", err)
		}
	}
	if fs.dispatcher != nil {
		fs.dispatcher.Close()
	}
	if fs.alertStore != nil {
		if err := fs.alertStore.Close(); err != nil {
			logger.Error("关闭告警存储失败: %v", err)
		}
	}

	logger.Info("水位监测服务已停止")
	return nil
}

// State 返回运行状态快照源
func (fs *FloodService) State() *flood.State {
	return fs.state
}

// AlertStore 返回告警存储
func (fs *FloodService) AlertStore() *store.AlertStore {
	return fs.alertStore
}

// Archiver 返回 OSS 归档客户端 未配置时为 nil
func (fs *FloodService) Archiver() *oss.Client {
	return fs.ossClient
}

func buildDistancer(cfg *models.Config) (sensor.Distancer, error) {
	switch cfg.SensorMode {
	case "file":
		distancer, err := sensor.NewFileDistancer(cfg.SensorFile)
		if err != nil {
			return nil, fmt.Errorf("初始化文件传感器失败: %v", err)
		}
		return distancer, nil
	case "simulated", "":
		return sensor.NewSimulated(cfg.SimulatedBaseCM, cfg.SimulatedDriftCM, time.Now().UnixNano()), nil
	default:
		return nil, fmt.Errorf("传感器模式无效: %s", cfg.SensorMode)
	}
}

func buildClassifier(cfg *models.Config) (*flood.Classifier, error) {
	thresholds := flood.DefaultThresholds()
	if strings.TrimSpace(cfg.ThresholdsFile) != "" {
		loaded, err := flood.LoadThresholds(cfg.ThresholdsFile)
		if err != nil {
			return nil, fmt.Errorf("加载阈值表失败: %v", err)
		}
		thresholds = loaded
	}
	classifier, err := flood.NewClassifier(thresholds)
	if err != nil {
		return nil, fmt.Errorf("阈值表无效: %v", err)
	}
	if err := flood.CheckAgainstContainer(thresholds, cfg.ContainerHeightCM); err != nil {
		return nil, fmt.Errorf("阈值表无效: %v", err)
	}
	return classifier, nil
}

func buildNotifier(cfg *models.Config) *flood.NotifierSet {
	set := &flood.NotifierSet{}
	if strings.TrimSpace(cfg.DingTalkWebhook) != "" {
		set.DingTalk = dingtalk.NewRobot(cfg.DingTalkWebhook, cfg.DingTalkSecret)
	}
	if strings.TrimSpace(cfg.WeChatRobotKey) != "" {
		set.WeChat = wechat.NewRobot(cfg.WeChatRobotKey)
	}
	if strings.TrimSpace(cfg.EmailHost) != "" {
		recipients := splitRecipients(cfg.EmailTo)
		set.Email = email.NewSender(cfg.EmailHost, cfg.EmailPort, cfg.EmailUser, cfg.EmailPass, cfg.EmailFrom, recipients, cfg.EmailUseTLS)
	}
	if set.Empty() {
		return nil
	}
	return set
}

func splitRecipients(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
