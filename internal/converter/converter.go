package converter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fyerfyer/doc-convert-system/internal/cache"
	"github.com/fyerfyer/doc-convert-system/internal/document"
	"github.com/fyerfyer/doc-convert-system/internal/models"
	"github.com/fyerfyer/doc-convert-system/internal/repository"
	"github.com/sirupsen/logrus"
)

// Result 批量转换的结果计数
type Result struct {
	Succeeded int // 成功转换的文件数
	Skipped   int // 因不可提取而跳过的文件数
}

// BatchConverter 批量转换服务
// 负责协调文档解析、结果缓存、输出写入和任务记录
type BatchConverter struct {
	cache   cache.Cache              // 提取结果缓存（可选）
	repo    repository.JobRepository // 任务记录存储（可选）
	logger  *logrus.Logger           // 日志记录器
	timeout time.Duration            // 单个文件处理超时时间
}

// Option 转换服务配置选项
type Option func(*BatchConverter)

// NewBatchConverter 创建一个新的批量转换服务
func NewBatchConverter(opts ...Option) *BatchConverter {
	c := &BatchConverter{
		logger:  logrus.New(),
		timeout: time.Minute * 5,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(c *BatchConverter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCache 设置提取结果缓存
func WithCache(cache cache.Cache) Option {
	return func(c *BatchConverter) {
		c.cache = cache
	}
}

// WithJobRepository 设置任务记录存储
func WithJobRepository(repo repository.JobRepository) Option {
	return func(c *BatchConverter) {
		c.repo = repo
	}
}

// WithTimeout 设置单个文件处理超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *BatchConverter) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// ConvertFile 转换单个文件，返回提取的文本
// 命中缓存时直接返回缓存内容，不重复解析
func (c *BatchConverter) ConvertFile(ctx context.Context, filePath string) (string, error) {
	parser, err := document.ParserFactory(filePath)
	if err != nil {
		return "", err
	}

	key, err := c.cacheKey(filePath)
	if err == nil && c.cache != nil {
		if text, found, cerr := c.cache.Get(key); cerr == nil && found {
			c.logger.WithField("file", filePath).Debug("Extraction cache hit")
			return text, nil
		}
	}

	text, err := parser.Parse(filePath)
	if err != nil {
		return "", err
	}

	if c.cache != nil && key != "" {
		if cerr := c.cache.Set(key, text, 0); cerr != nil {
			c.logger.WithError(cerr).Warn("Failed to cache extraction result")
		}
	}

	return text, nil
}

// ConvertDirectory 转换一个目录下的所有指定扩展名文件
// 每个成功转换的输入在输出目录下生成同名的.txt文件
// 单个文件失败只计为跳过，不中断整个批次，也不写出部分结果
func (c *BatchConverter) ConvertDirectory(ctx context.Context, inputDir, outputDir string, contentType document.ContentType) (Result, error) {
	var result Result

	// 输入目录必须存在且是目录，这是唯一的前置失败条件
	info, err := os.Stat(inputDir)
	if err != nil {
		return result, fmt.Errorf("input directory does not exist: %s", inputDir)
	}
	if !info.IsDir() {
		return result, fmt.Errorf("input path is not a directory: %s", inputDir)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create output directory: %v", err)
	}

	job := c.beginJob(models.JobTypeForContentType(contentType), inputDir, outputDir)

	files, err := listFilesByType(inputDir, contentType)
	if err != nil {
		c.finishJob(job, result, err)
		return result, err
	}

	for _, filePath := range files {
		select {
		case <-ctx.Done():
			c.finishJob(job, result, ctx.Err())
			return result, ctx.Err()
		default:
		}

		text, err := c.convertWithTimeout(ctx, filePath)
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"file":  filePath,
				"error": err.Error(),
			}).Warn("Skipping unextractable file")
			result.Skipped++
			c.recordFile(job, filePath, "", models.RecordStatusSkipped, err)
			continue
		}

		stem := strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
		outPath := filepath.Join(outputDir, stem+".txt")
		if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
			c.logger.WithFields(logrus.Fields{
				"file":  outPath,
				"error": err.Error(),
			}).Warn("Failed to write output file")
			result.Skipped++
			c.recordFile(job, filePath, outPath, models.RecordStatusSkipped, err)
			continue
		}

		result.Succeeded++
		c.recordFile(job, filePath, outPath, models.RecordStatusConverted, nil)
	}

	c.finishJob(job, result, nil)

	c.logger.WithFields(logrus.Fields{
		"input_dir":  inputDir,
		"output_dir": outputDir,
		"succeeded":  result.Succeeded,
		"skipped":    result.Skipped,
	}).Info("Directory conversion finished")

	return result, nil
}

// convertWithTimeout 在超时限制内转换单个文件
// 提取本身是同步阻塞的，超时通过丢弃结果实现，不会留下半写的输出
func (c *BatchConverter) convertWithTimeout(ctx context.Context, filePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type outcome struct {
		text string
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		text, err := c.ConvertFile(ctx, filePath)
		done <- outcome{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		return o.text, o.err
	}
}

// cacheKey 基于文件内容的SHA-256生成缓存键
func (c *BatchConverter) cacheKey(filePath string) (string, error) {
	if c.cache == nil {
		return "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	return cache.ExtractionKey(hex.EncodeToString(sum[:])), nil
}

// beginJob 创建任务记录，记录存储未配置时返回nil
func (c *BatchConverter) beginJob(jobType models.JobType, inputDir, outputPath string) *models.ConversionJob {
	if c.repo == nil {
		return nil
	}

	job := models.NewConversionJob(jobType, inputDir, outputPath)
	if err := c.repo.Create(job); err != nil {
		c.logger.WithError(err).Warn("Failed to create job record")
		return nil
	}

	now := time.Now()
	job.Status = models.JobStatusRunning
	job.StartedAt = &now
	if err := c.repo.Update(job); err != nil {
		c.logger.WithError(err).Warn("Failed to update job record")
	}

	return job
}

// finishJob 更新任务记录的最终状态和计数
func (c *BatchConverter) finishJob(job *models.ConversionJob, result Result, err error) {
	if job == nil || c.repo == nil {
		return
	}

	now := time.Now()
	job.Succeeded = result.Succeeded
	job.Skipped = result.Skipped
	job.CompletedAt = &now
	if err != nil {
		job.Status = models.JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = models.JobStatusCompleted
	}

	if uerr := c.repo.Update(job); uerr != nil {
		c.logger.WithError(uerr).Warn("Failed to finalize job record")
	}
}

// recordFile 保存单个文件的转换记录
func (c *BatchConverter) recordFile(job *models.ConversionJob, filePath, outPath string, status models.RecordStatus, convErr error) {
	if job == nil || c.repo == nil {
		return
	}

	record := &models.ConversionRecord{
		JobID:      job.ID,
		FileName:   filepath.Base(filePath),
		OutputPath: outPath,
		Status:     status,
	}
	if convErr != nil {
		record.Error = convErr.Error()
	}

	if err := c.repo.SaveRecord(record); err != nil {
		c.logger.WithError(err).Warn("Failed to save conversion record")
	}
}

// listFilesByType 枚举目录下指定类型的文件，按名称排序
func listFilesByType(dir string, contentType document.ContentType) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %v", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if document.DetectContentType(entry.Name()) == contentType {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(files)
	return files, nil
}
