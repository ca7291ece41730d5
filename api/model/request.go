package model

import (
	"mime/multipart"
	"time"
)

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// ExtractRequest 单文档提取请求
// 上传一个文档并同步返回提取出的纯文本
type ExtractRequest struct {
	File  *multipart.FileHeader `form:"file" binding:"required"`              // 文件对象
	Store bool                  `form:"store" json:"store" binding:"omitempty"` // 是否将提取结果保存为产物
}

// ConvertDirectoryRequest 目录批量转换请求
type ConvertDirectoryRequest struct {
	InputDir  string `json:"input_dir" binding:"required"`          // 输入目录
	OutputDir string `json:"output_dir" binding:"required"`         // 输出目录
	FileType  string `json:"file_type" binding:"required,filetype"` // 文件类型: word, pdf, markdown, plaintext
	Async     bool   `json:"async" binding:"omitempty"`             // 是否异步执行
}

// MergeRequest 目录合并请求
type MergeRequest struct {
	SourceDir  string `json:"source_dir" binding:"required"`            // 源目录
	OutputFile string `json:"output_file" binding:"required"`           // 合并产物路径
	Format     string `json:"format" binding:"required,mergeformat"`    // 文件格式: text 或 markdown
	Minify     bool   `json:"minify" binding:"omitempty"`               // 是否压缩空白(仅markdown)
	Gzip       bool   `json:"gzip" binding:"omitempty"`                 // 是否gzip输出(仅markdown)
	Timestamp  bool   `json:"timestamp" binding:"omitempty"`            // 是否在文件名中加时间戳(仅markdown)
	Async      bool   `json:"async" binding:"omitempty"`                // 是否异步执行
}

// JobStatusRequest 任务状态查询请求
type JobStatusRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}

// JobListRequest 任务列表请求
type JobListRequest struct {
	PaginationRequest
	Type      string     `form:"type" json:"type" binding:"omitempty"`             // 任务类型过滤
	Status    string     `form:"status" json:"status" binding:"omitempty"`         // 任务状态过滤
	StartTime *time.Time `form:"start_time" json:"start_time" binding:"omitempty"` // 开始时间
	EndTime   *time.Time `form:"end_time" json:"end_time" binding:"omitempty"`     // 结束时间
}

// JobDeleteRequest 任务删除请求
type JobDeleteRequest struct {
	ID string `uri:"id" binding:"required"` // 任务ID
}
