package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fyerfyer/doc-convert-system/api"
	"github.com/fyerfyer/doc-convert-system/api/handler"
	"github.com/fyerfyer/doc-convert-system/api/middleware"
	appconfig "github.com/fyerfyer/doc-convert-system/config"
	"github.com/fyerfyer/doc-convert-system/internal/cache"
	"github.com/fyerfyer/doc-convert-system/internal/converter"
	"github.com/fyerfyer/doc-convert-system/internal/database"
	"github.com/fyerfyer/doc-convert-system/internal/document"
	"github.com/fyerfyer/doc-convert-system/internal/repository"
	"github.com/fyerfyer/doc-convert-system/pkg/storage"
	"github.com/fyerfyer/doc-convert-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// 配置选项
type config struct {
	Port         int           // 服务端口
	Mode         string        // 运行模式 (debug/release)
	LogLevel     string        // 日志级别
	LogFile      string        // 日志文件路径
	ReadTimeout  time.Duration // 读取超时
	WriteTimeout time.Duration // 写入超时
	StoragePath  string        // 产物存储路径
	DataDir      string        // 数据目录路径
	CacheType    string        // 缓存类型
	ConfigFile   string        // 配置文件路径
	ConvertTTL   time.Duration // 单文件转换超时

	// 任务队列相关配置
	QueueEnabled     bool          // 是否启用任务队列
	QueueType        string        // 任务队列类型
	RedisAddr        string        // Redis 地址
	RedisPassword    string        // Redis 密码
	RedisDB          int           // Redis 数据库编号
	QueueConcurrency int           // 任务队列处理并发数
	QueueRetryLimit  int           // 任务重试次数
	QueueRetryDelay  time.Duration // 任务重试延迟

	// 运行模式
	WorkerMode bool // 仅运行任务队列工作者

	// 一次性转换模式
	ConvertDir string // 待转换的输入目录
	OutputDir  string // 转换输出目录
	FileType   string // 输入文件类型 (word/pdf/markdown/text)

	// 一次性合并模式
	MergeDir   string // 待合并的源目录
	MergeOut   string // 合并输出文件
	MergeFmt   string // 合并格式 (text/markdown)
	Minify    bool // 压缩markdown空白
	Gzip      bool // gzip压缩输出
	Timestamp bool // 输出文件名添加时间戳
}

func main() {
	// 加载.env文件（如果存在）
	_ = godotenv.Load()

	// 解析命令行参数
	cfg := parseFlags()

	// 加载配置文件(如果指定)
	if cfg.ConfigFile != "" {
		appConfig, err := appconfig.Load(cfg.ConfigFile)
		if err != nil {
			log.Printf("Warning: Failed to load config file: %v, using command line args", err)
		} else {
			updateConfigFromFile(&cfg, appConfig)
		}
	}

	// 初始化日志
	logger := setupLogger(cfg)

	// 一次性合并模式不需要数据库和服务器
	if cfg.MergeDir != "" {
		runMerge(cfg, logger)
		return
	}

	// 初始化数据库
	if err := setupDatabase(cfg, logger); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	repo := repository.NewJobRepository()

	// 创建提取结果缓存
	cacheService, err := setupCache(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize cache: %v", err)
	}

	// 创建批量转换器和合并器
	conv := converter.NewBatchConverter(
		converter.WithLogger(logger),
		converter.WithCache(cacheService),
		converter.WithJobRepository(repo),
		converter.WithTimeout(cfg.ConvertTTL),
	)
	merger := converter.NewMerger(logger)

	// 一次性转换模式
	if cfg.ConvertDir != "" {
		runConvert(cfg, conv, logger)
		return
	}

	// 初始化任务队列（如果启用）
	var queue taskqueue.Queue
	if cfg.QueueEnabled || cfg.WorkerMode {
		queue, err = setupTaskQueue(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		logger.Info("Task queue initialized successfully")
	}

	// 工作者模式：只消费任务，不启动HTTP服务
	if cfg.WorkerMode {
		runWorker(cfg, queue, logger)
		return
	}

	// 设置Gin模式
	gin.SetMode(cfg.Mode)

	// 创建产物存储服务
	fileStorage, err := setupStorage(cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	// 初始化API处理器
	convertHandler := handler.NewConvertHandler(conv, merger, fileStorage, queue, repo)
	jobHandler := handler.NewJobHandler(repo)
	var taskHandler *handler.TaskHandler
	if queue != nil {
		taskHandler = handler.NewTaskHandler(queue)
	}

	// 设置路由
	r := api.SetupRouter(convertHandler, jobHandler, taskHandler)

	// 启动HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// 优雅关闭
	go func() {
		logger.Infof("Server is running on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// 创建带超时的上下文
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 优雅关闭服务器
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// runWorker 运行任务队列工作者直到收到终止信号
func runWorker(cfg config, queue taskqueue.Queue, logger *logrus.Logger) {
	redisQueue, ok := queue.(*taskqueue.RedisQueue)
	if !ok {
		logger.Fatal("Worker mode requires a redis task queue")
	}

	workerConfig := &taskqueue.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.QueueConcurrency,
		RetryLimit:    cfg.QueueRetryLimit,
		RetryDelay:    cfg.QueueRetryDelay,
	}

	worker := taskqueue.NewRedisWorker(redisQueue, workerConfig)

	// 注册共享的转换任务处理器
	convertHandler := taskqueue.GetSharedConvertHandler(queue, logger)
	for _, taskType := range convertHandler.GetTaskTypes() {
		worker.RegisterHandler(taskType, convertHandler)
	}

	if err := worker.Start(); err != nil {
		logger.Fatalf("Failed to start worker: %v", err)
	}
	logger.Infof("Worker is running with concurrency %d", cfg.QueueConcurrency)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down worker...")
	worker.Stop()
	logger.Info("Worker exited")
}

// runConvert 执行一次性目录转换并退出
func runConvert(cfg config, conv *converter.BatchConverter, logger *logrus.Logger) {
	contentType := document.ContentTypeFromName(cfg.FileType)
	if contentType == document.Unknown {
		logger.Fatalf("Unsupported file type: %s", cfg.FileType)
	}

	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = cfg.ConvertDir + "_txt"
	}

	result, err := conv.ConvertDirectory(context.Background(), cfg.ConvertDir, outputDir, contentType)
	if err != nil {
		logger.Fatalf("Conversion failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"succeeded":  result.Succeeded,
		"skipped":    result.Skipped,
		"output_dir": outputDir,
	}).Info("Conversion completed")
}

// runMerge 执行一次性目录合并并退出
func runMerge(cfg config, logger *logrus.Logger) {
	merger := converter.NewMerger(logger)

	outFile := cfg.MergeOut
	if outFile == "" {
		logger.Fatal("Merge mode requires -merge-out")
	}

	switch cfg.MergeFmt {
	case "markdown", "md":
		written, count, err := merger.MergeMarkdownFiles(cfg.MergeDir, outFile, converter.MergeOptions{
			Minify:     cfg.Minify,
			GzipOutput: cfg.Gzip,
			Timestamp:  cfg.Timestamp,
		})
		if err != nil {
			logger.Fatalf("Merge failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"output_file":  written,
			"merged_count": count,
		}).Info("Merge completed")
	case "text", "txt":
		count, err := merger.MergeTextFiles(cfg.MergeDir, outFile)
		if err != nil {
			logger.Fatalf("Merge failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"output_file":  outFile,
			"merged_count": count,
		}).Info("Merge completed")
	default:
		logger.Fatalf("Unsupported merge format: %s", cfg.MergeFmt)
	}
}

// parseFlags 解析命令行参数
func parseFlags() config {
	cfg := config{}

	// 服务配置
	flag.IntVar(&cfg.Port, "port", 8080, "Server port")
	flag.StringVar(&cfg.Mode, "mode", "debug", "Run mode (debug/release)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&cfg.LogFile, "log-file", "", "Log file path (empty for stdout only)")
	flag.DurationVar(&cfg.ReadTimeout, "read-timeout", 30*time.Second, "Read timeout")
	flag.DurationVar(&cfg.WriteTimeout, "write-timeout", 30*time.Second, "Write timeout")

	// 存储配置
	flag.StringVar(&cfg.StoragePath, "storage", "./data/artifacts", "Artifact storage path")

	// 数据目录配置
	flag.StringVar(&cfg.DataDir, "data-dir", "./data", "Data directory path")

	// 缓存配置
	flag.StringVar(&cfg.CacheType, "cache", "memory", "Cache type (memory/redis)")

	// 转换配置
	flag.DurationVar(&cfg.ConvertTTL, "convert-timeout", 2*time.Minute, "Per-file conversion timeout")

	// 配置文件
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to config file")

	// 任务队列配置
	flag.BoolVar(&cfg.QueueEnabled, "queue", false, "Enable task queue")
	flag.StringVar(&cfg.QueueType, "queue-type", "redis", "Task queue type (redis)")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "Redis address for task queue")
	flag.StringVar(&cfg.RedisPassword, "redis-password", "", "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number")
	flag.IntVar(&cfg.QueueConcurrency, "queue-concurrency", 10, "Task queue concurrency")
	flag.IntVar(&cfg.QueueRetryLimit, "queue-retry", 3, "Max retry attempts for failed tasks")
	flag.DurationVar(&cfg.QueueRetryDelay, "queue-retry-delay", time.Minute, "Delay between retry attempts")

	// 运行模式
	flag.BoolVar(&cfg.WorkerMode, "worker", false, "Run as task queue worker only")

	// 一次性转换模式
	flag.StringVar(&cfg.ConvertDir, "convert-dir", "", "Convert all documents in this directory and exit")
	flag.StringVar(&cfg.OutputDir, "output-dir", "", "Output directory for converted files (defaults to <input>_txt)")
	flag.StringVar(&cfg.FileType, "file-type", "word", "Input file type for directory conversion (word/pdf/markdown/text)")

	// 一次性合并模式
	flag.StringVar(&cfg.MergeDir, "merge-dir", "", "Merge all files in this directory and exit")
	flag.StringVar(&cfg.MergeOut, "merge-out", "", "Output file for the merge result")
	flag.StringVar(&cfg.MergeFmt, "merge-format", "text", "Merge format (text/markdown)")
	flag.BoolVar(&cfg.Minify, "minify", false, "Minify merged markdown output")
	flag.BoolVar(&cfg.Gzip, "gzip", false, "Gzip the merged output file")
	flag.BoolVar(&cfg.Timestamp, "timestamp", false, "Add a timestamp to the merged output filename")

	// 从环境变量获取Redis连接信息（优先级高于命令行参数）
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.RedisPassword = redisPassword
	}

	flag.Parse()
	return cfg
}

// updateConfigFromFile 从配置文件更新命令行参数
func updateConfigFromFile(cfg *config, appConfig *appconfig.Config) {
	// 只更新未在命令行上明确设置的参数

	if flag.Lookup("port").DefValue == fmt.Sprint(cfg.Port) {
		cfg.Port = appConfig.Server.Port
	}
	if flag.Lookup("mode").DefValue == cfg.Mode {
		cfg.Mode = appConfig.Server.Mode
	}
	if flag.Lookup("log-level").DefValue == cfg.LogLevel {
		cfg.LogLevel = appConfig.Logging.Level
	}
	if flag.Lookup("log-file").DefValue == cfg.LogFile {
		cfg.LogFile = appConfig.Logging.File
	}
	if flag.Lookup("storage").DefValue == cfg.StoragePath {
		cfg.StoragePath = appConfig.Storage.Path
	}
	if flag.Lookup("cache").DefValue == cfg.CacheType {
		cfg.CacheType = appConfig.Cache.Type
	}
	if appConfig.Convert.Timeout > 0 && flag.Lookup("convert-timeout").DefValue == cfg.ConvertTTL.String() {
		cfg.ConvertTTL = appConfig.Convert.Timeout
	}

	// 任务队列配置
	if flag.Lookup("queue").DefValue == fmt.Sprint(cfg.QueueEnabled) {
		cfg.QueueEnabled = appConfig.Queue.Enable
	}
	if flag.Lookup("queue-type").DefValue == cfg.QueueType {
		cfg.QueueType = appConfig.Queue.Type
	}
	if flag.Lookup("redis-addr").DefValue == cfg.RedisAddr {
		cfg.RedisAddr = appConfig.Queue.RedisAddr
	}
	if flag.Lookup("redis-password").DefValue == cfg.RedisPassword {
		cfg.RedisPassword = appConfig.Queue.RedisPassword
	}
	if flag.Lookup("redis-db").DefValue == fmt.Sprint(cfg.RedisDB) {
		cfg.RedisDB = appConfig.Queue.RedisDB
	}
	if flag.Lookup("queue-concurrency").DefValue == fmt.Sprint(cfg.QueueConcurrency) {
		cfg.QueueConcurrency = appConfig.Queue.Concurrency
	}
	if flag.Lookup("queue-retry").DefValue == fmt.Sprint(cfg.QueueRetryLimit) {
		cfg.QueueRetryLimit = appConfig.Queue.RetryLimit
	}
	if appConfig.Queue.RetryDelay > 0 {
		cfg.QueueRetryDelay = time.Duration(appConfig.Queue.RetryDelay) * time.Second
	}
}

// setupLogger 设置日志系统
func setupLogger(cfg config) *logrus.Logger {
	middleware.ConfigureLogger(cfg.LogLevel, cfg.LogFile, 100, 3, 28)
	return middleware.GetLogger()
}

// setupStorage 设置产物存储服务
func setupStorage(cfg config) (storage.Storage, error) {
	// 确保存储目录存在
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return storage.New(storage.Config{
		Type:  "local",
		Local: storage.LocalConfig{Path: cfg.StoragePath},
	})
}

// setupCache 设置提取结果缓存
func setupCache(cfg config) (cache.Cache, error) {
	cacheConfig := cache.Config{
		Type:            cfg.CacheType,
		DefaultTTL:      24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
	}

	// 如果配置了Redis，添加Redis配置
	if cfg.CacheType == "redis" {
		cacheConfig.RedisAddr = cfg.RedisAddr
		cacheConfig.RedisPassword = cfg.RedisPassword
		cacheConfig.RedisDB = cfg.RedisDB
	}

	return cache.NewCache(cacheConfig)
}

// setupDatabase 设置数据库
func setupDatabase(cfg config, logger *logrus.Logger) error {
	dbPath := filepath.Join(cfg.DataDir, "docconvert.db")

	// 确保数据目录存在
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %v", err)
	}

	dbConfig := &database.Config{
		Type: "sqlite",
		DSN:  dbPath,
	}

	return database.Setup(dbConfig, logger)
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg config, logger *logrus.Logger) (taskqueue.Queue, error) {
	queueConfig := &taskqueue.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Concurrency:   cfg.QueueConcurrency,
		RetryLimit:    cfg.QueueRetryLimit,
		RetryDelay:    cfg.QueueRetryDelay,
	}

	logger.WithFields(logrus.Fields{
		"type":        cfg.QueueType,
		"redis_addr":  cfg.RedisAddr,
		"concurrency": cfg.QueueConcurrency,
		"retry_limit": cfg.QueueRetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewQueue(cfg.QueueType, queueConfig)
}
