package model

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// 请求中允许的文件类型
var validFileTypes = map[string]bool{
	"word":      true,
	"docx":      true,
	"pdf":       true,
	"markdown":  true,
	"md":        true,
	"plaintext": true,
	"text":      true,
	"txt":       true,
}

// 请求中允许的合并格式
var validMergeFormats = map[string]bool{
	"text":     true,
	"txt":      true,
	"markdown": true,
	"md":       true,
}

// RegisterValidations 注册自定义的请求校验规则
// 在路由初始化时调用一次
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}

	if err := v.RegisterValidation("filetype", func(fl validator.FieldLevel) bool {
		return validFileTypes[strings.ToLower(fl.Field().String())]
	}); err != nil {
		return err
	}

	return v.RegisterValidation("mergeformat", func(fl validator.FieldLevel) bool {
		return validMergeFormats[strings.ToLower(fl.Field().String())]
	})
}
