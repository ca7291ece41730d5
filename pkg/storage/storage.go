package storage

import (
	"fmt"
	"io"
	"strings"
)

// ArtifactInfo 存储对象元数据
// 既用于上传的源文档，也用于转换产出的文本产物
type ArtifactInfo struct {
	ID       string // 对象唯一标识符
	Name     string // 原始文件名
	Size     int64  // 文件大小(字节)
	MimeType string // MIME类型
	Path     string // 内部存储路径(实现相关)
}

// Storage 对象存储接口
// 定义存储的基本操作，可以有不同实现(本地文件系统、MinIO等)
type Storage interface {
	// Save 保存对象并返回元数据
	Save(reader io.Reader, filename string) (ArtifactInfo, error)

	// SaveText 保存文本产物(如提取出的纯文本)
	SaveText(content string, filename string) (ArtifactInfo, error)

	// Get 获取对象内容
	Get(id string) (io.ReadCloser, error)

	// Delete 删除对象
	Delete(id string) error

	// List 列出所有对象
	List() ([]ArtifactInfo, error)

	// Exists 检查对象是否存在
	Exists(id string) (bool, error)
}

// Config 存储配置
type Config struct {
	// 存储类型: "local" 或 "minio"
	Type  string
	Local LocalConfig
	Minio MinioConfig
}

// New 根据配置创建存储实例
func New(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
