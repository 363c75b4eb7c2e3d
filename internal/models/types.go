// 本文件用于定义配置与业务模型
package models

import (
	"time"
)

// Config 配置结构体
type Config struct {
	ContainerHeightCM float64 `yaml:"container_height_cm"` // 容器总高度
	SamplesPerCycle   int     `yaml:"samples_per_cycle"`   // 每个周期的原始采样次数
	MinDistanceCM     float64 `yaml:"min_distance_cm"`     // 有效读数下界（开区间）
	MaxDistanceCM     float64 `yaml:"max_distance_cm"`     // 有效读数上界（开区间）
	ReadingDelay      string  `yaml:"reading_delay"`       // 相邻两次原始读数的间隔
	PollInterval      string  `yaml:"poll_interval"`       // 轮询周期
	ConfirmCount      int     `yaml:"confirm_count"`       // 连续确认次数
	Cooldown          string  `yaml:"cooldown"`            // 告警后的冷却时长
	MinAlertLevel     string  `yaml:"min_alert_level"`     // 最低告警级别 默认 medium
	ThresholdsFile    string  `yaml:"thresholds_file"`     // 水位阈值表文件
	ThresholdsReload  bool    `yaml:"thresholds_reload"`   // 是否监听阈值文件变更并热加载

	SensorMode       string  `yaml:"sensor_mode"`        // simulated 或 file
	SensorFile       string  `yaml:"sensor_file"`        // file 模式下读取的设备导出文件
	SimulatedBaseCM  float64 `yaml:"simulated_base_cm"`  // simulated 模式的基准距离
	SimulatedDriftCM float64 `yaml:"simulated_drift_cm"` // simulated 模式读数抖动幅度

	AudioFile string `yaml:"audio_file"` // 告警音频文件路径 为空则跳过播放

	DataDir          string `yaml:"data_dir"`           // SQLite 告警库目录
	AlertHistoryRows int    `yaml:"alert_history_rows"` // 控制台查询的告警条数上限

	DingTalkWebhook string `yaml:"dingtalk_webhook"`
	DingTalkSecret  string `yaml:"dingtalk_secret"`
	WeChatRobotKey  string `yaml:"wechat_robot_key"`
	EmailHost       string `yaml:"email_host"`
	EmailPort       int    `yaml:"email_port"`
	EmailUser       string `yaml:"email_user"`
	EmailPass       string `yaml:"email_pass"`
	EmailFrom       string `yaml:"email_from"`
	EmailTo         string `yaml:"email_to"`
	EmailUseTLS     bool   `yaml:"email_use_tls"`

	Bucket     string `yaml:"bucket"` // OSS 告警归档配置 为空则不启用
	AK         string `yaml:"ak"`
	SK         string `yaml:"sk"`
	Endpoint   string `yaml:"endpoint"`
	DisableSSL bool   `yaml:"disable_ssl"`

	APIBind         string `yaml:"api_bind"`         // API 服务监听地址 为空则不启动
	DispatchAsync   *bool  `yaml:"dispatch_async"`   // 告警副作用是否异步执行
	DispatchWorkers int    `yaml:"dispatch_workers"` // 异步派发工作协程数

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	LogToStd *bool  `yaml:"log_to_std"`
}

// AlertRecord 表示一次已确认的告警记录
// 记录创建后不再修改 仅用于持久化与展示
type AlertRecord struct {
	ID            int64     `json:"id,omitempty"`
	Sensor        string    `json:"sensor"`
	Level         string    `json:"level"`
	WaterHeightCM float64   `json:"water_height_cm"`
	DistanceCM    float64   `json:"distance_cm"`
	Confirmations int       `json:"confirmations"`
	CreatedAt     time.Time `json:"created_at"`
}
