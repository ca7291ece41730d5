package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-convert-system/api/middleware"
	"github.com/fyerfyer/doc-convert-system/api/model"
	"github.com/fyerfyer/doc-convert-system/internal/converter"
	"github.com/fyerfyer/doc-convert-system/internal/document"
	"github.com/fyerfyer/doc-convert-system/internal/models"
	"github.com/fyerfyer/doc-convert-system/internal/repository"
	"github.com/fyerfyer/doc-convert-system/pkg/storage"
	"github.com/fyerfyer/doc-convert-system/pkg/taskqueue"
)

// ConvertHandler 处理文档转换相关的API请求
type ConvertHandler struct {
	converter   *converter.BatchConverter // 批量转换服务
	merger      *converter.Merger         // 合并服务
	fileStorage storage.Storage           // 产物存储服务，可为空
	queue       taskqueue.Queue           // 任务队列，可为空（为空时仅支持同步执行）
	repo        repository.JobRepository  // 作业仓储，可为空
	logger      *logrus.Logger            // 日志记录器
}

// NewConvertHandler 创建新的转换处理器
func NewConvertHandler(conv *converter.BatchConverter, merger *converter.Merger, fileStorage storage.Storage, queue taskqueue.Queue, repo repository.JobRepository) *ConvertHandler {
	logger := middleware.GetLogger()
	if conv == nil {
		conv = converter.NewBatchConverter(converter.WithLogger(logger))
	}
	if merger == nil {
		merger = converter.NewMerger(logger)
	}

	return &ConvertHandler{
		converter:   conv,
		merger:      merger,
		fileStorage: fileStorage,
		queue:       queue,
		repo:        repo,
		logger:      logger,
	}
}

// ExtractDocument 处理单文档提取请求
// POST /api/extract
func (h *ConvertHandler) ExtractDocument(c *gin.Context) {
	var req model.ExtractRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Invalid extract request")
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	filename := req.File.Filename
	if document.DetectContentType(filename) == document.Unknown {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型，仅支持 .docx, .pdf, .md, .markdown, .txt",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to open uploaded file")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"无法打开上传的文件",
		))
		return
	}
	defer file.Close()

	parser, err := document.ParserFactory(filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型",
		))
		return
	}

	content, err := parser.ParseReader(file, filename)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Warn("Failed to extract document")

		c.JSON(http.StatusUnprocessableEntity, model.NewErrorResponse(
			http.StatusUnprocessableEntity,
			"文档无法提取: "+err.Error(),
		))
		return
	}

	resp := model.ExtractResponse{
		FileName: filename,
		Content:  content,
		Chars:    utf8.RuneCountInString(content),
	}

	// 按需保存提取产物
	if req.Store && h.fileStorage != nil {
		stem := strings.TrimSuffix(filename, filepath.Ext(filename))
		info, err := h.fileStorage.SaveText(content, stem+".txt")
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"error":    err.Error(),
				"filename": filename,
			}).Error("Failed to store extracted text")
		} else {
			resp.ArtifactID = info.ID
		}
	}

	h.logger.WithFields(logrus.Fields{
		"filename": filename,
		"chars":    resp.Chars,
	}).Info("Document extracted")

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// ConvertDirectory 处理目录批量转换请求
// POST /api/convert
func (h *ConvertHandler) ConvertDirectory(c *gin.Context) {
	var req model.ConvertDirectoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	// 异步执行：入队后立即返回任务ID
	if req.Async {
		if h.queue == nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(
				http.StatusBadRequest,
				"任务队列未启用，无法异步执行",
			))
			return
		}

		taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskConvertDirectory, "", &taskqueue.ConvertDirectoryPayload{
			InputDir:  req.InputDir,
			OutputDir: req.OutputDir,
			FileType:  req.FileType,
		})
		if err != nil {
			h.logger.WithField("error", err.Error()).Error("Failed to enqueue convert task")
			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
				http.StatusInternalServerError,
				"提交转换任务失败",
			))
			return
		}

		c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.ConvertResponse{
			TaskID:    taskID,
			Status:    string(taskqueue.StatusPending),
			OutputDir: req.OutputDir,
		}))
		return
	}

	// 同步执行
	contentType := contentTypeFromRequest(req.FileType)
	result, err := h.converter.ConvertDirectory(c.Request.Context(), req.InputDir, req.OutputDir, contentType)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"input_dir": req.InputDir,
		}).Error("Failed to convert directory")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"批量转换失败: "+err.Error(),
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertResponse{
		Status:    string(models.JobStatusCompleted),
		Succeeded: result.Succeeded,
		Skipped:   result.Skipped,
		OutputDir: req.OutputDir,
	}))
}

// MergeDirectory 处理目录合并请求
// POST /api/merge
func (h *ConvertHandler) MergeDirectory(c *gin.Context) {
	var req model.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	// 异步执行
	if req.Async {
		if h.queue == nil {
			c.JSON(http.StatusBadRequest, model.NewErrorResponse(
				http.StatusBadRequest,
				"任务队列未启用，无法异步执行",
			))
			return
		}

		taskID, err := h.queue.Enqueue(c.Request.Context(), taskqueue.TaskMergeDirectory, "", &taskqueue.MergeDirectoryPayload{
			SourceDir:  req.SourceDir,
			OutputFile: req.OutputFile,
			Format:     req.Format,
			Minify:     req.Minify,
			Gzip:       req.Gzip,
			Timestamp:  req.Timestamp,
		})
		if err != nil {
			h.logger.WithField("error", err.Error()).Error("Failed to enqueue merge task")
			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
				http.StatusInternalServerError,
				"提交合并任务失败",
			))
			return
		}

		c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.MergeResponse{
			TaskID: taskID,
			Status: string(taskqueue.StatusPending),
		}))
		return
	}

	// 同步执行，作业记录通过仓储保存
	job := h.beginMergeJob(req)

	var (
		outFile string
		count   int
		err     error
	)
	if isMarkdownFormat(req.Format) {
		outFile, count, err = h.merger.MergeMarkdownFiles(req.SourceDir, req.OutputFile, converter.MergeOptions{
			Minify:     req.Minify,
			GzipOutput: req.Gzip,
			Timestamp:  req.Timestamp,
		})
	} else {
		count, err = h.merger.MergeTextFiles(req.SourceDir, req.OutputFile)
		outFile = req.OutputFile
	}

	h.finishMergeJob(job, count, err)

	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":      err.Error(),
			"source_dir": req.SourceDir,
		}).Error("Failed to merge directory")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"合并失败: "+err.Error(),
		))
		return
	}

	resp := model.MergeResponse{
		Status:      string(models.JobStatusCompleted),
		OutputFile:  outFile,
		MergedCount: count,
	}
	if job != nil {
		resp.JobID = job.ID
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}

// beginMergeJob 创建合并作业记录
func (h *ConvertHandler) beginMergeJob(req model.MergeRequest) *models.ConversionJob {
	if h.repo == nil {
		return nil
	}

	jobType := models.JobTypeMergeText
	if isMarkdownFormat(req.Format) {
		jobType = models.JobTypeMergeMarkdown
	}

	job := models.NewConversionJob(jobType, req.SourceDir, req.OutputFile)
	job.Status = models.JobStatusRunning
	if err := h.repo.Create(job); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Failed to create merge job record")
		return nil
	}
	return job
}

// finishMergeJob 更新合并作业的最终状态
func (h *ConvertHandler) finishMergeJob(job *models.ConversionJob, count int, mergeErr error) {
	if job == nil || h.repo == nil {
		return
	}

	if mergeErr != nil {
		job.Status = models.JobStatusFailed
		job.Error = mergeErr.Error()
	} else {
		job.Status = models.JobStatusCompleted
		job.Succeeded = count
	}
	if err := h.repo.Update(job); err != nil {
		h.logger.WithField("error", err.Error()).Warn("Failed to update merge job record")
	}
}

// contentTypeFromRequest 将请求中的文件类型映射到内容类型
func contentTypeFromRequest(fileType string) document.ContentType {
	switch strings.ToLower(fileType) {
	case "pdf":
		return document.PDF
	case "markdown", "md":
		return document.Markdown
	case "plaintext", "text", "txt":
		return document.PlainText
	default:
		return document.Word
	}
}

// isMarkdownFormat 判断合并格式是否为Markdown
func isMarkdownFormat(format string) bool {
	f := strings.ToLower(format)
	return f == "markdown" || f == "md"
}
