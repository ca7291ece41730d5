package document

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFEngine PDF文本提取引擎接口
// 每个可用的第三方提取后端对应一个实现，启动时按注册顺序探测选用
type PDFEngine interface {
	// Name 引擎名称
	Name() string

	// Available 探测该引擎当前是否可用
	Available() bool

	// Extract 从PDF文件中提取文本
	Extract(filePath string) (string, error)
}

// 已注册的引擎，按优先级排列
var pdfEngines []PDFEngine

// RegisterPDFEngine 注册一个PDF提取引擎
func RegisterPDFEngine(engine PDFEngine) {
	pdfEngines = append(pdfEngines, engine)
}

// PickPDFEngine 选择第一个可用的PDF提取引擎
func PickPDFEngine() (PDFEngine, error) {
	for _, engine := range pdfEngines {
		if engine.Available() {
			return engine, nil
		}
	}
	return nil, fmt.Errorf("no available PDF extraction engine")
}

// PDFParser PDF文档解析器
// 具体的提取工作委托给选定的引擎
type PDFParser struct {
	engine PDFEngine
}

// NewPDFParser 创建一个新的PDF解析器
func NewPDFParser() Parser {
	engine, err := PickPDFEngine()
	if err != nil {
		// 没有可用引擎时回退到pdfcpu，Parse时再报错
		engine = &pdfcpuEngine{}
	}
	return &PDFParser{engine: engine}
}

// Parse 解析PDF文件并提取其文本内容
func (p *PDFParser) Parse(filePath string) (string, error) {
	return p.engine.Extract(filePath)
}

// ParseReader 从Reader解析PDF内容
// pdfcpu需要随机访问，先落到临时文件再提取
func (p *PDFParser) ParseReader(r io.Reader, filename string) (string, error) {
	tmpFile, err := ioutil.TempFile("", "docconvert-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write temp file: %v", err)
	}
	tmpFile.Close()

	return p.Parse(tmpFile.Name())
}

// pdfcpuEngine 基于pdfcpu的提取引擎
type pdfcpuEngine struct{}

// Name 引擎名称
func (e *pdfcpuEngine) Name() string {
	return "pdfcpu"
}

// Available pdfcpu随二进制编译，始终可用
func (e *pdfcpuEngine) Available() bool {
	return true
}

// Extract 使用pdfcpu提取PDF文本
func (e *pdfcpuEngine) Extract(filePath string) (string, error) {
	// 创建临时目录用于存放提取的文本
	tmpDir, err := ioutil.TempDir("", "pdfcpu_extract_")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// 使用默认配置
	conf := model.NewDefaultConfiguration()

	// 提取文本到临时目录
	if err := api.ExtractContentFile(filePath, tmpDir, nil, conf); err != nil {
		return "", fmt.Errorf("failed to extract text from PDF: %v", err)
	}

	// 读取所有提取出来的txt文件
	files, err := ioutil.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted text dir: %v", err)
	}

	// 按文件名排序（页码顺序）
	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})

	var allText strings.Builder
	for _, f := range files {
		if !strings.HasSuffix(f.Name(), ".txt") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(tmpDir, f.Name()))
		if err != nil {
			continue
		}
		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.WriteString(string(data))
	}

	result := strings.TrimSpace(allText.String())
	if result == "" {
		return "", fmt.Errorf("no text content found in PDF")
	}
	return result, nil
}

// 在包初始化时注册pdfcpu引擎
func init() {
	RegisterPDFEngine(&pdfcpuEngine{})
}
