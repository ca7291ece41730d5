package models

import "errors"

var (
	// ErrJobNotFound 转换任务不存在错误
	ErrJobNotFound = errors.New("conversion job not found")

	// ErrInvalidJobStatus 无效的任务状态错误
	ErrInvalidJobStatus = errors.New("invalid job status")
)
