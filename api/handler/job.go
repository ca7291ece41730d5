package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-convert-system/api/middleware"
	"github.com/fyerfyer/doc-convert-system/api/model"
	"github.com/fyerfyer/doc-convert-system/internal/models"
	"github.com/fyerfyer/doc-convert-system/internal/repository"
)

// JobHandler 处理转换作业相关的API请求
type JobHandler struct {
	repo   repository.JobRepository // 作业仓储
	logger *logrus.Logger           // 日志记录器
}

// NewJobHandler 创建新的作业处理器
func NewJobHandler(repo repository.JobRepository) *JobHandler {
	return &JobHandler{
		repo:   repo,
		logger: middleware.GetLogger(),
	}
}

// ListJobs 获取作业列表
// GET /api/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req model.JobListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的查询参数"))
		return
	}

	// 构建过滤条件
	filters := make(map[string]interface{})
	if req.Type != "" {
		filters["type"] = req.Type
	}
	if req.Status != "" {
		filters["status"] = req.Status
	}

	offset := (req.GetPage() - 1) * req.GetPageSize()
	jobs, total, err := h.repo.List(offset, req.GetPageSize(), filters)
	if err != nil {
		h.logger.WithField("error", err.Error()).Error("Failed to list jobs")
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取作业列表失败",
		))
		return
	}

	infos := make([]model.JobInfo, len(jobs))
	for i, job := range jobs {
		infos[i] = model.NewJobInfo(job)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.JobListResponse{
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
		Jobs:     infos,
	}))
}

// GetJob 获取作业状态和文件记录
// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	var req model.JobStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的作业ID"))
		return
	}

	job, err := h.repo.GetByID(req.ID)
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "作业未找到"))
			return
		}

		h.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"job_id": req.ID,
		}).Error("Failed to get job")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取作业状态失败",
		))
		return
	}

	resp := model.JobStatusResponse{JobInfo: model.NewJobInfo(job)}

	// 附带单文件转换记录
	records, err := h.repo.GetRecords(req.ID)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"job_id": req.ID,
		}).Warn("Failed to get job records")
		// 继续处理，不返回错误
	} else {
		resp.Records = make([]model.RecordInfo, len(records))
		for i, record := range records {
			resp.Records[i] = model.RecordInfo{
				FileName:   record.FileName,
				OutputPath: record.OutputPath,
				Status:     string(record.Status),
				Error:      record.Error,
			}
		}
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// DeleteJob 删除作业及其文件记录
// DELETE /api/jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	var req model.JobDeleteRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的作业ID"))
		return
	}

	if err := h.repo.Delete(req.ID); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"job_id": req.ID,
		}).Error("Failed to delete job")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"删除作业失败",
		))
		return
	}

	h.logger.WithField("job_id", req.ID).Info("Job deleted successfully")

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.JobDeleteResponse{
		Success: true,
		JobID:   req.ID,
	}))
}
