// 本文件用于读取设备导出文件形式的距离传感器
// 硬件桥接程序把最新读数写入固定文件 本进程按需读取
package sensor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileDistancer 从固定文件读取最新的距离读数
type FileDistancer struct {
	path string
}

// NewFileDistancer 创建文件传感器
func NewFileDistancer(path string) (*FileDistancer, error) {
	cleaned := strings.TrimSpace(path)
	if cleaned == "" {
		return nil, fmt.Errorf("传感器文件路径不能为空")
	}
	return &FileDistancer{path: cleaned}, nil
}

// ReadDistanceCM 读取文件中的数值 单位厘米
func (f *FileDistancer) ReadDistanceCM(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return 0, fmt.Errorf("读取传感器文件失败: %w", err)
	}
	raw := strings.TrimSpace(string(data))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("解析传感器读数失败: %w", err)
	}
	return value, nil
}
