// 本文件用于告警记录的 SQLite 持久化存储。
// 文件职责：实现当前模块的核心业务逻辑与数据流转
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"flood-watch/internal/models"
)

const (
	defaultDataDir  = "data/flood"
	alertTimeLayout = time.RFC3339Nano
)

// AlertStore 封装告警记录的 SQLite 存取
type AlertStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open 初始化告警持久化存储
// 初始化失败交由上层决定降级 监控循环不依赖存储可用
func Open(dataDir string) (*AlertStore, error) {
	root := resolveDataDir(dataDir)
	// 启动时确保目录存在，避免数据库文件无法创建
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create alert data dir failed: %w", err)
	}
	dbPath := filepath.Join(root, "flood.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open alert sqlite failed: %w", err)
	}
	// WAL 兼顾写入吞吐与崩溃恢复
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set alert sqlite wal failed: %w", err)
	}
	if err := migrateAlertStore(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &AlertStore{db: db, dbPath: dbPath}, nil
}

func migrateAlertStore(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flood_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sensor TEXT NOT NULL,
			level TEXT NOT NULL,
			water_height_cm REAL NOT NULL,
			distance_cm REAL NOT NULL,
			confirmations INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_flood_alerts_created_at ON flood_alerts (created_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("migrate alert store failed: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *AlertStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DBPath 返回数据库文件路径
func (s *AlertStore) DBPath() string {
	if s == nil {
		return ""
	}
	return s.dbPath
}

// SaveAlert 写入一条告警记录并返回自增主键
func (s *AlertStore) SaveAlert(ctx context.Context, record *models.AlertRecord) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("告警存储未初始化")
	}
	if record == nil {
		return 0, fmt.Errorf("告警记录为空")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO flood_alerts (
			sensor, level, water_height_cm, distance_cm, confirmations, created_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		record.Sensor,
		record.Level,
		record.WaterHeightCM,
		record.DistanceCM,
		record.Confirmations,
		formatAlertTime(record.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("写入告警记录失败: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RecentAlerts 倒序返回最近写入的告警记录
// 按自增主键排序 写入顺序即告警产生顺序 时间戳字符串不参与比较
func (s *AlertStore) RecentAlerts(ctx context.Context, limit int) ([]models.AlertRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("告警存储未初始化")
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sensor, level, water_height_cm, distance_cm, confirmations, created_at
		FROM flood_alerts
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AlertRecord, 0, limit)
	for rows.Next() {
		var (
			item      models.AlertRecord
			createdAt string
		)
		if err := rows.Scan(
			&item.ID,
			&item.Sensor,
			&item.Level,
			&item.WaterHeightCM,
			&item.DistanceCM,
			&item.Confirmations,
			&createdAt,
		); err != nil {
			return nil, err
		}
		item.CreatedAt = parseAlertTime(createdAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func resolveDataDir(dataDir string) string {
	cleaned := strings.TrimSpace(dataDir)
	if cleaned == "" {
		return defaultDataDir
	}
	return filepath.Clean(cleaned)
}

func formatAlertTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(alertTimeLayout)
}

func parseAlertTime(raw string) time.Time {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return time.Time{}
	}
	ts, err := time.Parse(alertTimeLayout, cleaned)
	if err != nil {
		return time.Time{}
	}
	return ts
}
