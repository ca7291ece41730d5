package converter

import (
	"compress/gzip"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/fyerfyer/doc-convert-system/internal/document"
	"github.com/sirupsen/logrus"
)

// MergeOptions Markdown合并的可选项
type MergeOptions struct {
	Minify     bool // 是否压缩空白（规范化换行、去行尾空白、压缩空行）
	GzipOutput bool // 是否以gzip写出
	Timestamp  bool // 是否在输出文件名中加时间戳
}

// Merger 合并服务
// 将一个目录下已提取的文本文件按确定的名称顺序拼接为单个文件
type Merger struct {
	logger *logrus.Logger
}

// NewMerger 创建合并服务
func NewMerger(logger *logrus.Logger) *Merger {
	if logger == nil {
		logger = logrus.New()
	}
	return &Merger{logger: logger}
}

// MergeTextFiles 合并目录下的所有.txt文件
// 文件按名称排序，条目之间以一个空行分隔；返回合并的文件数
// 每个输入文件读取时应用编码回退链，来源不明的文件不会中断合并
func (m *Merger) MergeTextFiles(srcDir, outFile string) (int, error) {
	if err := checkSourceDir(srcDir); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %v", err)
	}

	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read source directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(filepath.Ext(entry.Name())) == ".txt" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var sb strings.Builder
	for i, name := range names {
		content, err := document.ReadTextFileWithFallback(filepath.Join(srcDir, name))
		if err != nil {
			return 0, err
		}
		if i != 0 {
			// 前一个条目不以换行结尾时补一个，再加一个空行作为分隔
			if sb.Len() > 0 && !strings.HasSuffix(sb.String(), "\n") {
				sb.WriteByte('\n')
			}
			sb.WriteByte('\n')
		}
		sb.WriteString(content)
	}

	if err := os.WriteFile(outFile, []byte(sb.String()), 0644); err != nil {
		return 0, fmt.Errorf("failed to write merged file: %v", err)
	}

	m.logger.WithFields(logrus.Fields{
		"src_dir":  srcDir,
		"out_file": outFile,
		"count":    len(names),
	}).Info("Text files merged")

	return len(names), nil
}

// MergeMarkdownFiles 递归合并目录下的所有.md文件
// 文件按相对路径排序，每个条目前插入"## <相对路径>"标题，
// 条目之间以水平分隔线分隔（minify模式下仅空行）
func (m *Merger) MergeMarkdownFiles(srcDir, outFile string, opts MergeOptions) (string, int, error) {
	if err := checkSourceDir(srcDir); err != nil {
		return "", 0, err
	}

	if opts.Timestamp {
		outFile = timestampedName(outFile)
	}

	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %v", err)
	}

	var relPaths []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".md" {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("failed to walk source directory: %v", err)
	}
	sort.Strings(relPaths)

	separator := "\n\n---\n\n"
	if opts.Minify {
		separator = "\n\n"
	}

	var sb strings.Builder
	for i, rel := range relPaths {
		content, err := document.ReadTextFileWithFallback(filepath.Join(srcDir, filepath.FromSlash(rel)))
		if err != nil {
			return "", 0, err
		}
		if i != 0 {
			sb.WriteString(separator)
		}
		sb.WriteString("## " + rel + "\n\n")
		sb.WriteString(content)
		if !strings.HasSuffix(sb.String(), "\n") {
			sb.WriteByte('\n')
		}
	}

	merged := sb.String()
	if opts.Minify {
		merged = minifyMarkdown(merged)
	}

	if opts.GzipOutput {
		if strings.ToLower(filepath.Ext(outFile)) != ".gz" {
			outFile = outFile + ".gz"
		}
		if err := writeGzip(outFile, merged); err != nil {
			return "", 0, err
		}
	} else {
		if err := os.WriteFile(outFile, []byte(merged), 0644); err != nil {
			return "", 0, fmt.Errorf("failed to write merged file: %v", err)
		}
	}

	m.logger.WithFields(logrus.Fields{
		"src_dir":  srcDir,
		"out_file": outFile,
		"count":    len(relPaths),
		"minify":   opts.Minify,
		"gzip":     opts.GzipOutput,
	}).Info("Markdown files merged")

	return outFile, len(relPaths), nil
}

var mergeBlankLinesRe = regexp.MustCompile(`\n{3,}`)

// minifyMarkdown 压缩合并结果中的空白
// CRLF统一为LF，去除行尾空白，三个以上连续换行压缩为两个，保证以换行结尾
func minifyMarkdown(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	normalized = strings.Join(lines, "\n")
	normalized = mergeBlankLinesRe.ReplaceAllString(normalized, "\n\n")

	if !strings.HasSuffix(normalized, "\n") {
		normalized += "\n"
	}
	return normalized
}

// writeGzip 以gzip最高压缩级别写出文本
func writeGzip(path, content string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create gzip file: %v", err)
	}
	defer f.Close()

	zw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %v", err)
	}
	if _, err := zw.Write([]byte(content)); err != nil {
		zw.Close()
		return fmt.Errorf("failed to write gzip content: %v", err)
	}
	return zw.Close()
}

// timestampedName 在文件名主干后附加时间戳
func timestampedName(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%s%s", stem, time.Now().Format("20060102_150405"), ext)
}

// checkSourceDir 检查源目录存在且是目录
func checkSourceDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("source directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path is not a directory: %s", dir)
	}
	return nil
}
