// 本文件用于程序启动入口
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"flood-watch/internal/api"
	"flood-watch/internal/config"
	"flood-watch/internal/logger"
	"flood-watch/internal/models"
	"flood-watch/internal/service"
	"flood-watch/internal/sysinfo"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("程序退出: %v", err)
	}
}

func run() error {
	configPath := parseFlags()
	log.Printf("程序启动，配置文件: %s", configPath)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}

	if err := logger.InitLogger(cfg); err != nil {
		return err
	}
	defer logger.Close()

	logConfig(cfg)

	floodService, err := service.NewFloodService(cfg)
	if err != nil {
		logger.Error("创建水位监测服务失败: %v", err)
		return err
	}

	if err := floodService.Start(); err != nil {
		logger.Error("启动水位监测服务失败: %v", err)
		return err
	}

	var apiServer *api.Server
	if strings.TrimSpace(cfg.APIBind) != "" {
		opts := api.Options{
			Config:     cfg,
			State:      floodService.State(),
			AlertStore: floodService.AlertStore(),
			HostInfo:   sysinfo.NewCollector(cfg.DataDir),
		}
		if archiver := floodService.Archiver(); archiver != nil {
			opts.Archiver = archiver
		}
		apiServer = api.NewServer(opts)
		apiServer.Start()
	}

	waitForShutdown(floodService, apiServer)
	return nil
}

func parseFlags() string {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.Parse()
	return configPath
}

func logConfig(cfg *models.Config) {
	logger.Info("配置加载成功")
	logger.Info("容器高度: %.1fcm", cfg.ContainerHeightCM)
	logger.Info("每周期采样: %d 次, 有效区间: (%.1f, %.1f)cm", cfg.SamplesPerCycle, cfg.MinDistanceCM, cfg.MaxDistanceCM)
	logger.Info("轮询周期: %s, 冷却时长: %s", cfg.PollInterval, cfg.Cooldown)
	logger.Info("连续确认次数: %d, 最低告警级别: %s", cfg.ConfirmCount, cfg.MinAlertLevel)
	logger.Info("传感器模式: %s", cfg.SensorMode)
	if strings.TrimSpace(cfg.ThresholdsFile) != "" {
		logger.Info("阈值表文件: %s, 热加载: %v", cfg.ThresholdsFile, cfg.ThresholdsReload)
	} else {
		logger.Info("未配置阈值表文件，使用默认阈值")
	}
	if strings.TrimSpace(cfg.Bucket) != "" {
		logger.Info("OSS Bucket: %s", cfg.Bucket)
		logger.Info("OSS Endpoint: %s", cfg.Endpoint)
	}
	logToStd := cfg.LogToStd == nil || *cfg.LogToStd
	logger.Info("日志级别: %s", cfg.LogLevel)
	if cfg.LogFile != "" {
		logger.Info("日志文件: %s", cfg.LogFile)
	}
	logger.Info("日志输出到标准输出: %v", logToStd)
}

func waitForShutdown(floodService *service.FloodService, apiServer *api.Server) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	<-signalChan
	logger.Info("收到退出信号，正在关闭服务...")

	if err := floodService.Stop(); err != nil {
		logger.Error("停止水位监测服务失败: %v", err)
	}
	if apiServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(ctx); err != nil {
			logger.Warn("关闭 API 服务失败: %v", err)
		}
	}

	logger.Info("程序已退出")
	os.Exit(0)
}
