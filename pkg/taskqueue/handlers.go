package taskqueue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/fyerfyer/doc-convert-system/internal/converter"
	"github.com/fyerfyer/doc-convert-system/internal/document"
)

// ConvertTaskHandler 转换任务处理器
// 执行单文档转换、目录批量转换和目录合并三类任务，
// 并将执行结果写回任务队列
type ConvertTaskHandler struct {
	queue     Queue
	converter *converter.BatchConverter
	merger    *converter.Merger
	logger    *logrus.Logger
}

// NewConvertTaskHandler 创建转换任务处理器
func NewConvertTaskHandler(queue Queue, conv *converter.BatchConverter, merger *converter.Merger, logger *logrus.Logger) *ConvertTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	if conv == nil {
		conv = converter.NewBatchConverter(converter.WithLogger(logger))
	}
	if merger == nil {
		merger = converter.NewMerger(logger)
	}

	return &ConvertTaskHandler{
		queue:     queue,
		converter: conv,
		merger:    merger,
		logger:    logger,
	}
}

// GetTaskTypes 返回此处理器支持的任务类型
func (h *ConvertTaskHandler) GetTaskTypes() []TaskType {
	return []TaskType{TaskConvertDocument, TaskConvertDirectory, TaskMergeDirectory}
}

// ProcessTask 处理任务
func (h *ConvertTaskHandler) ProcessTask(ctx context.Context, task *Task) error {
	switch task.Type {
	case TaskConvertDocument:
		return h.processConvertDocument(ctx, task)
	case TaskConvertDirectory:
		return h.processConvertDirectory(ctx, task)
	case TaskMergeDirectory:
		return h.processMergeDirectory(ctx, task)
	default:
		return fmt.Errorf("unsupported task type: %s", task.Type)
	}
}

// processConvertDocument 处理单文档转换任务
func (h *ConvertTaskHandler) processConvertDocument(ctx context.Context, task *Task) error {
	var payload ConvertDocumentPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return ErrInvalidPayload
	}

	if payload.FilePath == "" {
		return ErrInvalidPayload
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"file_path": payload.FilePath,
	}).Info("Converting document")

	content, err := h.converter.ConvertFile(ctx, payload.FilePath)
	if err != nil {
		return fmt.Errorf("failed to convert document: %w", err)
	}

	result := ConvertDocumentResult{
		Content: content,
		Chars:   utf8.RuneCountInString(content),
	}
	return h.saveResult(ctx, task.ID, result)
}

// processConvertDirectory 处理目录批量转换任务
func (h *ConvertTaskHandler) processConvertDirectory(ctx context.Context, task *Task) error {
	var payload ConvertDirectoryPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return ErrInvalidPayload
	}

	contentType, err := contentTypeFor(payload.FileType)
	if err != nil {
		return err
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"input_dir":  payload.InputDir,
		"output_dir": payload.OutputDir,
		"file_type":  payload.FileType,
	}).Info("Converting directory")

	res, err := h.converter.ConvertDirectory(ctx, payload.InputDir, payload.OutputDir, contentType)
	if err != nil {
		return fmt.Errorf("failed to convert directory: %w", err)
	}

	result := ConvertDirectoryResult{
		Succeeded: res.Succeeded,
		Skipped:   res.Skipped,
		OutputDir: payload.OutputDir,
	}
	return h.saveResult(ctx, task.ID, result)
}

// processMergeDirectory 处理目录合并任务
func (h *ConvertTaskHandler) processMergeDirectory(ctx context.Context, task *Task) error {
	var payload MergeDirectoryPayload
	if err := UnmarshalPayload(task.Payload, &payload); err != nil {
		return ErrInvalidPayload
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":     task.ID,
		"source_dir":  payload.SourceDir,
		"output_file": payload.OutputFile,
		"format":      payload.Format,
	}).Info("Merging directory")

	outFile := payload.OutputFile
	if dir := filepath.Dir(outFile); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var result MergeDirectoryResult
	switch strings.ToLower(payload.Format) {
	case "", "text", "txt":
		count, err := h.merger.MergeTextFiles(payload.SourceDir, outFile)
		if err != nil {
			return fmt.Errorf("failed to merge text files: %w", err)
		}
		result = MergeDirectoryResult{OutputFile: outFile, MergedCount: count}
	case "markdown", "md":
		finalPath, count, err := h.merger.MergeMarkdownFiles(payload.SourceDir, outFile, converter.MergeOptions{
			Minify:     payload.Minify,
			GzipOutput: payload.Gzip,
			Timestamp:  payload.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("failed to merge markdown files: %w", err)
		}
		result = MergeDirectoryResult{OutputFile: finalPath, MergedCount: count}
	default:
		return fmt.Errorf("unsupported merge format: %s", payload.Format)
	}

	return h.saveResult(ctx, task.ID, result)
}

// saveResult 将任务结果写回队列
// 状态的推进由工作者负责，这里只更新结果数据
func (h *ConvertTaskHandler) saveResult(ctx context.Context, taskID string, result interface{}) error {
	if h.queue == nil {
		return nil
	}
	if err := h.queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, result, ""); err != nil {
		h.logger.WithError(err).WithField("task_id", taskID).Warn("Failed to save task result")
	}
	return nil
}

// contentTypeFor 将任务载荷中的文件类型映射到内容类型
func contentTypeFor(fileType string) (document.ContentType, error) {
	switch strings.ToLower(fileType) {
	case "word", "docx":
		return document.Word, nil
	case "pdf":
		return document.PDF, nil
	case "markdown", "md":
		return document.Markdown, nil
	case "plaintext", "text", "txt":
		return document.PlainText, nil
	default:
		return document.Unknown, fmt.Errorf("unsupported file type: %s", fileType)
	}
}
