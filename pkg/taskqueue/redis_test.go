package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupRedisTest 设置一个miniredis实例用于测试
// 返回Redis地址和一个清理函数
func setupRedisTest(t *testing.T) (string, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	return mr.Addr(), func() {
		mr.Close()
	}
}

// newTestQueue 创建一个用于测试的Redis队列
func newTestQueue(t *testing.T, redisAddr string) Queue {
	cfg := &Config{
		RedisAddr:   redisAddr,
		Concurrency: 2,
		RetryLimit:  2,
		RetryDelay:  time.Second,
	}

	queue, err := NewRedisQueue(cfg)
	require.NoError(t, err)
	return queue
}

// TestNewRedisQueue 测试创建Redis队列实例
func TestNewRedisQueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	assert.NotNil(t, queue)

	err := queue.Close()
	assert.NoError(t, err)
}

// TestRedisQueue_Enqueue 测试队列入队功能
func TestRedisQueue_Enqueue(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &ConvertDirectoryPayload{
		InputDir:  "/data/in",
		OutputDir: "/data/out",
		FileType:  "word",
	}

	// 测试基本入队
	taskID, err := queue.Enqueue(ctx, TaskConvertDirectory, "job-123", payload)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	// 验证任务已入队
	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskConvertDirectory, task.Type)
	assert.Equal(t, "job-123", task.JobID)
	assert.Equal(t, StatusPending, task.Status)
	assert.NotNil(t, task.Payload)
}

// TestRedisQueue_EnqueueAt 测试定时入队功能
func TestRedisQueue_EnqueueAt(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &ConvertDocumentPayload{
		FilePath: "/data/in/report.docx",
		FileName: "report.docx",
	}

	processAt := time.Now().Add(time.Second)
	taskID, err := queue.EnqueueAt(ctx, TaskConvertDocument, "job-123", payload, processAt)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskConvertDocument, task.Type)
	assert.Equal(t, StatusPending, task.Status)
}

// TestRedisQueue_EnqueueIn 测试延时入队功能
func TestRedisQueue_EnqueueIn(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	payload := &MergeDirectoryPayload{
		SourceDir:  "/data/out",
		OutputFile: "/data/merged.txt",
		Format:     "text",
	}

	taskID, err := queue.EnqueueIn(ctx, TaskMergeDirectory, "job-123", payload, time.Second)
	assert.NoError(t, err)
	assert.NotEmpty(t, taskID)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, TaskMergeDirectory, task.Type)
	assert.Equal(t, StatusPending, task.Status)
}

// TestRedisQueue_GetTasksByJob 测试获取作业相关任务
func TestRedisQueue_GetTasksByJob(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()
	jobID := "job-456"

	// 为同一个作业入队多个任务
	payloads := []interface{}{
		&ConvertDirectoryPayload{
			InputDir:  "/data/in",
			OutputDir: "/data/out",
			FileType:  "word",
		},
		&MergeDirectoryPayload{
			SourceDir:  "/data/out",
			OutputFile: "/data/merged.txt",
			Format:     "text",
		},
	}

	taskTypes := []TaskType{
		TaskConvertDirectory,
		TaskMergeDirectory,
	}

	for i, payload := range payloads {
		_, err := queue.Enqueue(ctx, taskTypes[i], jobID, payload)
		require.NoError(t, err)
	}

	// 获取作业相关的任务
	tasks, err := queue.GetTasksByJob(ctx, jobID)
	assert.NoError(t, err)
	assert.Equal(t, len(payloads), len(tasks))

	// 验证所有任务都关联到正确的作业
	for _, task := range tasks {
		assert.Equal(t, jobID, task.JobID)
	}

	// 测试获取不存在作业的任务
	emptyTasks, err := queue.GetTasksByJob(ctx, "non-existent")
	assert.NoError(t, err)
	assert.Empty(t, emptyTasks)
}

// TestRedisQueue_UpdateTaskStatus 测试更新任务状态
func TestRedisQueue_UpdateTaskStatus(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	payload := &ConvertDirectoryPayload{
		InputDir:  "/data/in",
		OutputDir: "/data/out",
		FileType:  "word",
	}

	taskID, err := queue.Enqueue(ctx, TaskConvertDirectory, "job-789", payload)
	require.NoError(t, err)

	// 更新任务状态到处理中
	err = queue.UpdateTaskStatus(ctx, taskID, StatusProcessing, nil, "")
	assert.NoError(t, err)

	task, err := queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusProcessing, task.Status)
	assert.NotNil(t, task.StartedAt)

	// 更新任务状态到已完成，带结果
	result := &ConvertDirectoryResult{
		Succeeded: 3,
		Skipped:   1,
		OutputDir: "/data/out",
	}
	err = queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, result, "")
	assert.NoError(t, err)

	task, err = queue.GetTask(ctx, taskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.NotNil(t, task.CompletedAt)
	assert.NotEmpty(t, task.Result)

	var savedResult ConvertDirectoryResult
	require.NoError(t, UnmarshalPayload(task.Result, &savedResult))
	assert.Equal(t, 3, savedResult.Succeeded)
	assert.Equal(t, 1, savedResult.Skipped)

	// 测试更新到失败状态
	failTaskID, err := queue.Enqueue(ctx, TaskConvertDirectory, "job-789", payload)
	require.NoError(t, err)

	errorMsg := "input directory does not exist"
	err = queue.UpdateTaskStatus(ctx, failTaskID, StatusFailed, nil, errorMsg)
	assert.NoError(t, err)

	failTask, err := queue.GetTask(ctx, failTaskID)
	assert.NoError(t, err)
	assert.Equal(t, StatusFailed, failTask.Status)
	assert.Equal(t, errorMsg, failTask.Error)
	assert.NotNil(t, failTask.CompletedAt)
}

// TestRedisQueue_DeleteTask 测试删除任务
func TestRedisQueue_DeleteTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	payload := &ConvertDocumentPayload{
		FilePath: "/data/in/report.docx",
		FileName: "report.docx",
	}

	jobID := "job-delete-test"
	taskID, err := queue.Enqueue(ctx, TaskConvertDocument, jobID, payload)
	require.NoError(t, err)

	// 确认任务和作业关联存在
	tasks, err := queue.GetTasksByJob(ctx, jobID)
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)

	// 删除任务
	err = queue.DeleteTask(ctx, taskID)
	assert.NoError(t, err)

	// 验证任务已被删除
	_, err = queue.GetTask(ctx, taskID)
	assert.Error(t, err)
	assert.Equal(t, ErrTaskNotFound, err)

	// 验证作业关联也被删除
	tasks, err = queue.GetTasksByJob(ctx, jobID)
	assert.NoError(t, err)
	assert.Empty(t, tasks)
}

// TestRedisQueue_NotifyTaskUpdate 测试任务更新通知
func TestRedisQueue_NotifyTaskUpdate(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskConvertDocument, "job-notify", &ConvertDocumentPayload{})
	require.NoError(t, err)

	err = queue.NotifyTaskUpdate(ctx, taskID)
	assert.NoError(t, err)
}

// TestRedisQueue_WaitForTask 测试等待任务完成
func TestRedisQueue_WaitForTask(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	queue := newTestQueue(t, redisAddr)
	defer queue.Close()

	ctx := context.Background()

	taskID, err := queue.Enqueue(ctx, TaskConvertDocument, "job-wait", &ConvertDocumentPayload{})
	require.NoError(t, err)

	// 已完成的任务直接返回
	err = queue.UpdateTaskStatus(ctx, taskID, StatusCompleted, nil, "")
	require.NoError(t, err)

	task, err := queue.WaitForTask(ctx, taskID, 100*time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, StatusCompleted, task.Status)

	// 未完成的任务超时返回ErrTaskTimeout
	pendingID, err := queue.Enqueue(ctx, TaskConvertDocument, "job-wait", &ConvertDocumentPayload{})
	require.NoError(t, err)

	_, err = queue.WaitForTask(ctx, pendingID, 50*time.Millisecond)
	assert.Equal(t, ErrTaskTimeout, err)
}

// TestNewQueueFactory 测试队列工厂
func TestNewQueueFactory(t *testing.T) {
	redisAddr, cleanup := setupRedisTest(t)
	defer cleanup()

	cfg := DefaultConfig()
	cfg.RedisAddr = redisAddr

	queue, err := NewQueue("redis", cfg)
	assert.NoError(t, err)
	assert.NotNil(t, queue)
	queue.Close()

	_, err = NewQueue("rabbitmq", cfg)
	assert.Error(t, err)
}

// TestTaskInfo 测试TaskInfo生成
func TestTaskInfo(t *testing.T) {
	now := time.Now()
	startedAt := now.Add(-5 * time.Minute)
	completedAt := now.Add(-1 * time.Minute)

	task := &Task{
		ID:          "task-123",
		Type:        TaskConvertDirectory,
		JobID:       "job-123",
		Status:      StatusCompleted,
		Error:       "",
		CreatedAt:   now.Add(-10 * time.Minute),
		UpdatedAt:   now,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		Attempts:    1,
		MaxRetries:  3,
	}

	info := NewTaskInfo(task)

	assert.Equal(t, task.ID, info.ID)
	assert.Equal(t, task.Type, info.Type)
	assert.Equal(t, task.JobID, info.JobID)
	assert.Equal(t, task.Status, info.Status)
	assert.Equal(t, task.Error, info.Error)
	assert.Equal(t, task.CreatedAt, info.CreatedAt)
	assert.Equal(t, task.StartedAt, info.StartedAt)
	assert.Equal(t, task.CompletedAt, info.CompletedAt)
	assert.Equal(t, 100.0, info.Progress) // 已完成状态进度为100%
}
