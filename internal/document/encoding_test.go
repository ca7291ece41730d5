package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestDecodeTextWithFallbackUTF8(t *testing.T) {
	assert.Equal(t, "hello 世界", DecodeTextWithFallback([]byte("hello 世界")))
}

func TestDecodeTextWithFallbackBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("with bom")...)
	assert.Equal(t, "with bom", DecodeTextWithFallback(data))
}

func TestDecodeTextWithFallbackGB18030(t *testing.T) {
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("中文编码测试"))
	require.NoError(t, err)
	// GB18030编码的中文不是合法UTF-8，应走回退链解码
	assert.Equal(t, "中文编码测试", DecodeTextWithFallback(encoded))
}

func TestDecodeTextWithFallbackInvalidBytes(t *testing.T) {
	// 回退链耗尽时替换非法字节，绝不报错
	data := []byte{'o', 'k', 0xFF, 0xFE, 0xFF}
	result := DecodeTextWithFallback(data)
	assert.Contains(t, result, "ok")
}
