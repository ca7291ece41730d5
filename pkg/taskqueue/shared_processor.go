package taskqueue

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	sharedHandler     *ConvertTaskHandler
	sharedHandlerOnce sync.Once
)

// GetSharedConvertHandler 返回一个单例的 ConvertTaskHandler 实例
// 工作者进程和API进程共享同一个处理器配置
func GetSharedConvertHandler(queue Queue, logger *logrus.Logger) *ConvertTaskHandler {
	sharedHandlerOnce.Do(func() {
		sharedHandler = NewConvertTaskHandler(queue, nil, nil, logger)
	})
	return sharedHandler
}
