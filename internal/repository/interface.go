package repository

import "github.com/fyerfyer/doc-convert-system/internal/models"

// JobRepository 转换任务仓储接口
// 负责转换任务及单文件转换记录的存储和检索
type JobRepository interface {
	// Create 创建任务记录
	Create(job *models.ConversionJob) error

	// Update 更新任务记录
	Update(job *models.ConversionJob) error

	// GetByID 根据ID获取任务
	GetByID(id string) (*models.ConversionJob, error)

	// List 列出任务列表，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.ConversionJob, int64, error)

	// Delete 删除任务及其文件记录
	Delete(id string) error

	// UpdateStatus 更新任务状态
	UpdateStatus(id string, status models.JobStatus, errorMsg string) error

	// SaveRecord 保存单个文件的转换记录
	SaveRecord(record *models.ConversionRecord) error

	// GetRecords 获取任务的所有文件记录
	GetRecords(jobID string) ([]*models.ConversionRecord, error)

	// CountRecords 统计任务的文件记录数量
	CountRecords(jobID string) (int, error)
}
