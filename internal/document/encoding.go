package document

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// UTF-8字节序标记
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeTextWithFallback 按回退链解码文本字节
// 依次尝试：UTF-8(含BOM剥离) → GB18030 → UTF-8替换非法字节
// 来源不明的文件不应导致读取中断，所以最后一级总是成功
func DecodeTextWithFallback(data []byte) string {
	// 先剥离BOM再做UTF-8校验
	raw := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}

	// GB18030覆盖常见的中文遗留编码
	decoded, _, err := transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
	if err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded)
	}

	// 回退链耗尽，替换非法字节而不是报错
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// ReadTextFileWithFallback 读取文件并按回退链解码
func ReadTextFileWithFallback(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %v", err)
	}
	return DecodeTextWithFallback(data), nil
}
