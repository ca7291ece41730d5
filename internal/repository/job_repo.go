package repository

import (
	"errors"
	"fmt"

	"github.com/fyerfyer/doc-convert-system/internal/database"
	"github.com/fyerfyer/doc-convert-system/internal/models"
	"gorm.io/gorm"
)

// jobRepository 转换任务仓储实现
type jobRepository struct {
	db *gorm.DB // 数据库连接
}

// NewJobRepository 创建任务仓储实例
func NewJobRepository() JobRepository {
	return &jobRepository{
		db: database.MustDB(),
	}
}

// NewJobRepositoryWithDB 使用指定的数据库连接创建任务仓储实例
func NewJobRepositoryWithDB(db *gorm.DB) JobRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &jobRepository{
		db: db,
	}
}

// Create 创建任务记录
func (r *jobRepository) Create(job *models.ConversionJob) error {
	if job.ID == "" {
		return errors.New("job ID cannot be empty")
	}

	return r.db.Create(job).Error
}

// Update 更新任务记录
func (r *jobRepository) Update(job *models.ConversionJob) error {
	if job.ID == "" {
		return errors.New("job ID cannot be empty")
	}

	return r.db.Save(job).Error
}

// GetByID 根据ID获取任务
func (r *jobRepository) GetByID(id string) (*models.ConversionJob, error) {
	var job models.ConversionJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
		}
		return nil, err
	}

	return &job, nil
}

// List 列出任务列表，支持分页和筛选
// filters支持的键: type, status
func (r *jobRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.ConversionJob, int64, error) {
	query := r.db.Model(&models.ConversionJob{})

	if v, ok := filters["type"]; ok {
		query = query.Where("type = ?", v)
	}
	if v, ok := filters["status"]; ok {
		query = query.Where("status = ?", v)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []*models.ConversionJob
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// Delete 删除任务及其文件记录
func (r *jobRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Delete(&models.ConversionRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.ConversionJob{}).Error
	})
}

// UpdateStatus 更新任务状态
func (r *jobRepository) UpdateStatus(id string, status models.JobStatus, errorMsg string) error {
	job, err := r.GetByID(id)
	if err != nil {
		return err
	}

	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}

	return r.db.Save(job).Error
}

// SaveRecord 保存单个文件的转换记录
func (r *jobRepository) SaveRecord(record *models.ConversionRecord) error {
	if record.JobID == "" {
		return errors.New("record job ID cannot be empty")
	}

	return r.db.Create(record).Error
}

// GetRecords 获取任务的所有文件记录
func (r *jobRepository) GetRecords(jobID string) ([]*models.ConversionRecord, error) {
	var records []*models.ConversionRecord
	err := r.db.Where("job_id = ?", jobID).Order("id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// CountRecords 统计任务的文件记录数量
func (r *jobRepository) CountRecords(jobID string) (int, error) {
	var count int64
	err := r.db.Model(&models.ConversionRecord{}).Where("job_id = ?", jobID).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return int(count), nil
}
