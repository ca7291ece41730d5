package model

import (
	"time"

	"github.com/fyerfyer/doc-convert-system/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// ExtractResponse 单文档提取响应
type ExtractResponse struct {
	FileName   string `json:"filename"`              // 文件名
	Content    string `json:"content"`               // 提取出的纯文本
	Chars      int    `json:"chars"`                 // 字符数
	ArtifactID string `json:"artifact_id,omitempty"` // 保存的产物ID（store=true时）
}

// ConvertResponse 目录批量转换响应
type ConvertResponse struct {
	JobID     string `json:"job_id,omitempty"`     // 转换作业ID
	TaskID    string `json:"task_id,omitempty"`    // 队列任务ID（异步时）
	Status    string `json:"status"`               // 执行状态
	Succeeded int    `json:"succeeded"`            // 成功转换的文件数（同步时）
	Skipped   int    `json:"skipped"`              // 跳过的文件数（同步时）
	OutputDir string `json:"output_dir,omitempty"` // 输出目录
}

// MergeResponse 目录合并响应
type MergeResponse struct {
	JobID       string `json:"job_id,omitempty"`      // 合并作业ID
	TaskID      string `json:"task_id,omitempty"`     // 队列任务ID（异步时）
	Status      string `json:"status"`                // 执行状态
	OutputFile  string `json:"output_file,omitempty"` // 合并产物路径
	MergedCount int    `json:"merged_count"`          // 合并的文件数（同步时）
}

// JobInfo 作业信息
type JobInfo struct {
	ID          string     `json:"id"`                     // 作业ID
	Type        string     `json:"type"`                   // 作业类型
	InputDir    string     `json:"input_dir"`              // 输入目录
	OutputPath  string     `json:"output_path"`            // 输出目录或文件
	Status      string     `json:"status"`                 // 作业状态
	Succeeded   int        `json:"succeeded"`              // 成功数量
	Skipped     int        `json:"skipped"`                // 跳过数量
	Error       string     `json:"error,omitempty"`        // 错误信息
	CreatedAt   time.Time  `json:"created_at"`             // 创建时间
	StartedAt   *time.Time `json:"started_at,omitempty"`   // 开始处理时间
	CompletedAt *time.Time `json:"completed_at,omitempty"` // 完成时间
}

// NewJobInfo 从数据模型构建作业信息
func NewJobInfo(job *models.ConversionJob) JobInfo {
	return JobInfo{
		ID:          job.ID,
		Type:        string(job.Type),
		InputDir:    job.InputDir,
		OutputPath:  job.OutputPath,
		Status:      string(job.Status),
		Succeeded:   job.Succeeded,
		Skipped:     job.Skipped,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
}

// JobListResponse 作业列表响应
type JobListResponse struct {
	Total    int64     `json:"total"`     // 总数量
	Page     int       `json:"page"`      // 当前页码
	PageSize int       `json:"page_size"` // 每页大小
	Jobs     []JobInfo `json:"jobs"`      // 作业列表
}

// RecordInfo 单个文件的转换记录信息
type RecordInfo struct {
	FileName   string `json:"filename"`              // 输入文件名
	OutputPath string `json:"output_path,omitempty"` // 输出文件路径
	Status     string `json:"status"`                // 转换结果
	Error      string `json:"error,omitempty"`       // 错误信息
}

// JobStatusResponse 作业状态查询响应
type JobStatusResponse struct {
	JobInfo
	Records []RecordInfo `json:"records,omitempty"` // 文件转换记录
}

// JobDeleteResponse 作业删除响应
type JobDeleteResponse struct {
	Success bool   `json:"success"` // 是否成功
	JobID   string `json:"job_id"`  // 作业ID
}
