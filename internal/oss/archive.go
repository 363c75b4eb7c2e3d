// 本文件用于 OSS 客户端封装与告警归档上传
// 文件职责：把告警历史导出为 CSV 并上传到对象存储
// 关键路径：入口参数先校验再执行业务处理 最后返回统一结果
// 边界与容错：异常场景显式返回错误 由上层决定重试或降级

package oss

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sdk "github.com/aliyun/aliyun-oss-go-sdk/oss"

	"flood-watch/internal/logger"
	"flood-watch/internal/models"
)

// Client 封装 OSS SDK 客户端及相关配置
type Client struct {
	ossClient *sdk.Client
	bucket    *sdk.Bucket
	config    *models.Config
	hostName  string
}

// NewClient 创建并初始化 OSS 客户端
func NewClient(config *models.Config) (*Client, error) {
	logger.Info("初始化OSS客户端...")
	endpoint, err := normalizeOSSEndpoint(config.Endpoint, config.DisableSSL)
	if err != nil {
		return nil, err
	}

	ossClient, err := sdk.New(endpoint, config.AK, config.SK)
	if err != nil {
		return nil, fmt.Errorf("创建OSS客户端失败: %w", err)
	}
	bucket, err := ossClient.Bucket(config.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取OSS Bucket失败: %w", err)
	}

	logger.Info("OSS客户端初始化成功")
	return &Client{
		ossClient: ossClient,
		bucket:    bucket,
		config:    config,
		hostName:  normalizeHostName(),
	}, nil
}

// ArchiveAlerts 把告警记录导出为 CSV 并上传 返回对象下载链接
func (c *Client) ArchiveAlerts(ctx context.Context, records []models.AlertRecord) (string, error) {
	if c == nil || c.bucket == nil {
		return "", fmt.Errorf("OSS Bucket未初始化")
	}
	if len(records) == 0 {
		return "", fmt.Errorf("没有可归档的告警记录")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := encodeAlertCSV(records)
	if err != nil {
		return "", fmt.Errorf("导出告警CSV失败: %w", err)
	}

	objectKey := c.buildObjectKey(time.Now())
	logger.Info("开始上传告警归档: %s (%d 条)", objectKey, len(records))

	reader := &contextReader{
		ctx:    ctx,
		reader: bytes.NewReader(payload),
	}
	err = c.bucket.PutObject(
		objectKey,
		reader,
		sdk.ContentLength(int64(len(payload))),
		sdk.ContentType("text/csv"),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("OSS上传失败: %w", err)
	}

	downloadURL := c.buildDownloadURL(objectKey)
	logger.Info("告警归档上传成功: %s", downloadURL)
	return downloadURL, nil
}

// encodeAlertCSV 把告警记录序列化为 CSV
func encodeAlertCSV(records []models.AlertRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"id", "sensor", "level", "water_height_cm", "distance_cm", "confirmations", "created_at"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.Sensor,
			record.Level,
			strconv.FormatFloat(record.WaterHeightCM, 'f', 2, 64),
			strconv.FormatFloat(record.DistanceCM, 'f', 2, 64),
			strconv.Itoa(record.Confirmations),
			record.CreatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildObjectKey 按主机与时间组织归档路径
func (c *Client) buildObjectKey(now time.Time) string {
	return fmt.Sprintf("flood-alerts/%s/%s/alerts-%s.csv",
		c.hostName,
		now.Format("2006-01"),
		now.Format("20060102-150405"))
}

// buildDownloadURL 用于构建归档对象的访问链接
func (c *Client) buildDownloadURL(objectKey string) string {
	endpoint := strings.TrimSpace(c.config.Endpoint)
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimSuffix(endpoint, "/")
	scheme := "https"
	if c.config.DisableSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s.%s/%s", scheme, c.config.Bucket, endpoint, objectKey)
}

// normalizeOSSEndpoint 用于统一 OSS Endpoint 格式
func normalizeOSSEndpoint(endpoint string, disableSSL bool) (string, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return "", fmt.Errorf("OSS Endpoint不能为空")
	}
	parsed, err := url.Parse(trimmed)
	if err == nil && parsed.Scheme != "" && parsed.Host != "" {
		return trimmed, nil
	}
	parsed, err = url.Parse("//" + trimmed)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("无效的 OSS Endpoint: %s", endpoint)
	}
	scheme := "https"
	if disableSSL {
		scheme = "http"
	}
	return scheme + "://" + parsed.Host + strings.TrimSuffix(parsed.Path, "/"), nil
}

// contextReader 用于让上传过程响应上下文取消
type contextReader struct {
	ctx    context.Context
	reader io.Reader
}

// Read 在读取前检查上下文，避免取消后继续上传
func (r *contextReader) Read(p []byte) (int, error) {
	if r == nil {
		return 0, io.EOF
	}
	if r.ctx != nil {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}
	}
	if r.reader == nil {
		return 0, io.EOF
	}
	return r.reader.Read(p)
}

// normalizeHostName 用于统一数据格式便于比较与存储
func normalizeHostName() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	host = strings.TrimSpace(host)
	host = strings.ReplaceAll(host, "/", "-")
	host = strings.ReplaceAll(host, "\\", "-")
	if host == "" {
		return "unknown-host"
	}
	return host
}
