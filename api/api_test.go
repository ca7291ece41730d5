package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/fyerfyer/doc-convert-system/api/handler"
	"github.com/fyerfyer/doc-convert-system/internal/converter"
	"github.com/fyerfyer/doc-convert-system/internal/database"
	"github.com/fyerfyer/doc-convert-system/internal/models"
	"github.com/fyerfyer/doc-convert-system/internal/repository"
	"github.com/fyerfyer/doc-convert-system/pkg/storage"
	"github.com/fyerfyer/doc-convert-system/pkg/taskqueue"
)

// setupTestRouter 搭建一套用于测试的API环境
// 使用临时SQLite数据库、miniredis队列和本地存储
func setupTestRouter(t *testing.T) (*gin.Engine, repository.JobRepository, taskqueue.Queue) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	repo := repository.NewJobRepositoryWithDB(db)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	queue, err := taskqueue.NewRedisQueue(&taskqueue.Config{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { queue.Close() })

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	conv := converter.NewBatchConverter(converter.WithJobRepository(repo))
	convertHandler := handler.NewConvertHandler(conv, nil, fileStorage, queue, repo)
	jobHandler := handler.NewJobHandler(repo)
	taskHandler := handler.NewTaskHandler(queue)

	return SetupRouter(convertHandler, jobHandler, taskHandler), repo, queue
}

// newTestJob 创建一个用于测试的转换作业记录
func newTestJob(t *testing.T) *models.ConversionJob {
	t.Helper()
	return models.NewConversionJob(models.JobTypeConvertWord, "/input", "/output")
}

// docxBytes 构造一个单段落docx文件的内容
func docxBytes(t *testing.T, text string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)

	doc := `<?xml version="1.0" encoding="UTF-8"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// uploadRequest 构造multipart文件上传请求
func uploadRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// decodeResponse 解析通用响应并返回data部分
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestExtractEndpoint(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := uploadRequest(t, "/api/extract", "report.docx", docxBytes(t, "hello world"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)
	assert.Equal(t, "hello world\n", data["content"])
	assert.Equal(t, "report.docx", data["filename"])
}

func TestExtractEndpointStoreArtifact(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := uploadRequest(t, "/api/extract", "report.docx", docxBytes(t, "stored text"), map[string]string{"store": "true"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)
	assert.NotEmpty(t, data["artifact_id"])
}

func TestExtractEndpointUnsupportedType(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := uploadRequest(t, "/api/extract", "sheet.xlsx", []byte("not supported"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractEndpointBrokenDocument(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := uploadRequest(t, "/api/extract", "broken.docx", []byte("not a zip"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestConvertEndpointSync(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	inputDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "a.docx"), docxBytes(t, "alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "b.docx"), docxBytes(t, "beta"), 0644))

	body, err := json.Marshal(map[string]interface{}{
		"input_dir":  inputDir,
		"output_dir": outputDir,
		"file_type":  "word",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)
	assert.Equal(t, float64(2), data["succeeded"])
	assert.Equal(t, float64(0), data["skipped"])

	content, err := os.ReadFile(filepath.Join(outputDir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha\n", string(content))

	// 转换作业应已入库
	jobs, total, err := repo.List(0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, jobs, 1)
}

func TestConvertEndpointInvalidFileType(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	body := []byte(`{"input_dir":"/in","output_dir":"/out","file_type":"xlsx"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConvertEndpointAsync(t *testing.T) {
	router, _, queue := setupTestRouter(t)

	body := []byte(`{"input_dir":"/in","output_dir":"/out","file_type":"word","async":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/convert", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
	data := decodeResponse(t, w)
	taskID, ok := data["task_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, taskID)

	// 任务应已入队，状态为pending
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/tasks/"+taskID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	taskData := decodeResponse(t, w)
	assert.Equal(t, string(taskqueue.StatusPending), taskData["status"])

	// 队列中应能找到该任务
	_, err := queue.GetTask(req.Context(), taskID)
	assert.NoError(t, err)
}

func TestMergeEndpointSync(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	srcDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "1.txt"), []byte("one"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "2.txt"), []byte("two"), 0644))

	outFile := filepath.Join(t.TempDir(), "merged.txt")
	body, err := json.Marshal(map[string]interface{}{
		"source_dir":  srcDir,
		"output_file": outFile,
		"format":      "text",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/merge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)
	assert.Equal(t, float64(2), data["merged_count"])

	content, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "one\n\ntwo", string(content))

	// 合并作业应已入库并可查询
	jobID, ok := data["job_id"].(string)
	require.True(t, ok)
	job, err := repo.GetByID(jobID)
	require.NoError(t, err)
	assert.Equal(t, 2, job.Succeeded)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+jobID, nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	jobData := decodeResponse(t, w)
	assert.Equal(t, "completed", jobData["status"])
}

func TestMergeEndpointMissingSource(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	body := []byte(`{"source_dir":"/no/such/dir","output_file":"/tmp/merged.txt","format":"text"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/merge", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestJobNotFound(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/no-such-job", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobList(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	// 预置两个作业
	require.NoError(t, repo.Create(newTestJob(t)))
	require.NoError(t, repo.Create(newTestJob(t)))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs?page=1&page_size=10", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)
	assert.Equal(t, float64(2), data["total"])
}

func TestJobDelete(t *testing.T) {
	router, repo, _ := setupTestRouter(t)

	job := newTestJob(t)
	require.NoError(t, repo.Create(job))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	_, err := repo.GetByID(job.ID)
	assert.Error(t, err)
}
