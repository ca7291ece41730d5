package models

import (
	"time"

	"github.com/fyerfyer/doc-convert-system/internal/document"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// JobStatus 转换任务状态类型
type JobStatus string

const (
	// JobStatusPending 任务已创建，等待处理
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning 任务处理中
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted 任务处理完成
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed 任务处理失败
	JobStatusFailed JobStatus = "failed"
)

// JobType 转换任务类型
type JobType string

const (
	// JobTypeConvertWord Word文档批量转换
	JobTypeConvertWord JobType = "convert_word"
	// JobTypeConvertPDF PDF文档批量转换
	JobTypeConvertPDF JobType = "convert_pdf"
	// JobTypeConvertMarkdown Markdown文档批量转换
	JobTypeConvertMarkdown JobType = "convert_markdown"
	// JobTypeMergeText 文本文件合并
	JobTypeMergeText JobType = "merge_text"
	// JobTypeMergeMarkdown Markdown文件合并
	JobTypeMergeMarkdown JobType = "merge_markdown"
)

// JobTypeForContentType 根据文档内容类型返回对应的转换任务类型
func JobTypeForContentType(contentType document.ContentType) JobType {
	switch contentType {
	case document.PDF:
		return JobTypeConvertPDF
	case document.Markdown:
		return JobTypeConvertMarkdown
	default:
		return JobTypeConvertWord
	}
}

// ConversionJob 转换任务数据模型
// 记录一次批量转换或合并的输入、输出和计数
type ConversionJob struct {
	ID          string         `gorm:"primaryKey"`         // 任务ID，主键
	Type        JobType        `gorm:"not null;index"`     // 任务类型
	InputDir    string         `gorm:"not null"`           // 输入目录
	OutputPath  string         `gorm:"not null"`           // 输出目录或文件
	Status      JobStatus      `gorm:"not null;index"`     // 任务状态
	Succeeded   int            `gorm:"not null;default:0"` // 成功数量
	Skipped     int            `gorm:"not null;default:0"` // 跳过数量
	Error       string         `gorm:"type:text"`          // 错误信息
	Metadata    datatypes.JSON `gorm:"type:json"`          // 元数据，JSON格式
	CreatedAt   time.Time      `gorm:"not null;index"`     // 创建时间
	UpdatedAt   time.Time      `gorm:"not null"`           // 更新时间
	StartedAt   *time.Time     `gorm:"index"`              // 开始处理时间
	CompletedAt *time.Time     `gorm:"index"`              // 完成时间
}

// NewConversionJob 创建一个新的转换任务记录
func NewConversionJob(jobType JobType, inputDir, outputPath string) *ConversionJob {
	return &ConversionJob{
		ID:         uuid.New().String(),
		Type:       jobType,
		InputDir:   inputDir,
		OutputPath: outputPath,
		Status:     JobStatusPending,
	}
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (j *ConversionJob) BeforeCreate(tx *gorm.DB) (err error) {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now()
	}
	j.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (j *ConversionJob) BeforeUpdate(tx *gorm.DB) (err error) {
	j.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (ConversionJob) TableName() string {
	return "conversion_jobs"
}

// RecordStatus 单个文件的转换结果状态
type RecordStatus string

const (
	// RecordStatusConverted 文件成功转换
	RecordStatusConverted RecordStatus = "converted"
	// RecordStatusSkipped 文件被跳过
	RecordStatusSkipped RecordStatus = "skipped"
)

// ConversionRecord 单个文件的转换记录
// 用于在数据库中跟踪批次内每个文件的结果
type ConversionRecord struct {
	ID         uint         `gorm:"primaryKey;autoIncrement"` // 主键ID
	JobID      string       `gorm:"not null;index"`           // 所属任务ID
	FileName   string       `gorm:"not null"`                 // 输入文件名
	OutputPath string       `gorm:""`                         // 输出文件路径
	Status     RecordStatus `gorm:"not null;size:20"`         // 转换结果
	Error      string       `gorm:"type:text"`                // 错误信息
	CreatedAt  time.Time    `gorm:"not null"`                 // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *ConversionRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (ConversionRecord) TableName() string {
	return "conversion_records"
}
