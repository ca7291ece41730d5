package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskConvertDocument 单文档转换任务
	TaskConvertDocument TaskType = "convert_document"
	// TaskConvertDirectory 目录批量转换任务
	TaskConvertDirectory TaskType = "convert_directory"
	// TaskMergeDirectory 目录合并任务
	TaskMergeDirectory TaskType = "merge_directory"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	JobID       string          `json:"job_id"`       // 关联的转换作业ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷数据，不同任务类型对应不同结构
	Result      json.RawMessage `json:"result"`       // 任务结果数据，不同任务类型对应不同结构
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// ConvertDocumentPayload 单文档转换任务载荷
type ConvertDocumentPayload struct {
	FilePath string            `json:"file_path"` // 源文件路径
	FileName string            `json:"file_name"` // 文件名
	Metadata map[string]string `json:"metadata"`  // 元数据
}

// ConvertDocumentResult 单文档转换任务结果
type ConvertDocumentResult struct {
	Content string `json:"content"` // 提取出的文本内容
	Chars   int    `json:"chars"`   // 字符数
	Error   string `json:"error"`   // 错误信息（如果有）
}

// ConvertDirectoryPayload 目录批量转换任务载荷
type ConvertDirectoryPayload struct {
	InputDir  string `json:"input_dir"`  // 输入目录
	OutputDir string `json:"output_dir"` // 输出目录
	FileType  string `json:"file_type"`  // 文件类型: word, pdf, markdown, plaintext
}

// ConvertDirectoryResult 目录批量转换任务结果
type ConvertDirectoryResult struct {
	Succeeded int    `json:"succeeded"` // 成功转换的文件数
	Skipped   int    `json:"skipped"`   // 跳过的文件数
	OutputDir string `json:"output_dir"`
	Error     string `json:"error"` // 错误信息（如果有）
}

// MergeDirectoryPayload 目录合并任务载荷
type MergeDirectoryPayload struct {
	SourceDir  string `json:"source_dir"`  // 源目录
	OutputFile string `json:"output_file"` // 合并产物路径
	Format     string `json:"format"`      // 文件格式: text 或 markdown
	Minify     bool   `json:"minify"`      // 是否压缩空白(仅markdown)
	Gzip       bool   `json:"gzip"`        // 是否gzip输出(仅markdown)
	Timestamp  bool   `json:"timestamp"`   // 是否在文件名中加时间戳(仅markdown)
}

// MergeDirectoryResult 目录合并任务结果
type MergeDirectoryResult struct {
	OutputFile  string `json:"output_file"`  // 最终产物路径
	MergedCount int    `json:"merged_count"` // 合并的文件数
	Error       string `json:"error"`        // 错误信息（如果有）
}
