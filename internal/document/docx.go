package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/beevik/etree"
)

// docx包内各部件的路径约定
const (
	docxWordDir      = "word/"
	docxMainDocument = "word/document.xml"
)

// wordprocessingml命名空间
// 包内所有正文元素都以该命名空间限定，匹配时必须按命名空间比较，
// 不能假定前缀或无前缀的标签名
const wordMLNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// 逻辑角色到wordprocessingml本地标签名的映射
// 所有命名空间限定的匹配都经过这里，不在使用处硬编码
const (
	tagParagraph      = "p"   // 段落
	tagRunText        = "t"   // 文本run内容
	tagTab            = "tab" // 制表符
	tagLineBreak      = "br"  // 显式换行/分页/分栏
	tagCarriageReturn = "cr"  // 回车式换行
)

// WordParser Word(.docx)文档解析器
type WordParser struct{}

// NewWordParser 创建一个新的Word解析器
func NewWordParser() Parser {
	return &WordParser{}
}

// Parse 解析docx文件并提取其文本内容
// 文件不是有效的zip容器或主文档部件缺失/损坏时返回ErrNotExtractable
func (p *WordParser) Parse(filePath string) (string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("%w: not a valid zip container: %v", ErrNotExtractable, err)
	}
	defer zr.Close()

	return extractDocxText(&zr.Reader)
}

// ParseReader 从Reader解析docx内容
func (p *WordParser) ParseReader(r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read docx content: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a valid zip container: %v", ErrNotExtractable, err)
	}

	return extractDocxText(zr)
}

// extractDocxText 从zip容器中聚合所有相关部件的段落并规范化为最终文本
// 顺序固定：主文档部件在前，补充部件按条目名字节序排列在后
func extractDocxText(zr *zip.Reader) (string, error) {
	main, err := readXMLPart(zr, docxMainDocument)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotExtractable, err)
	}

	paragraphs := extractParagraphs(main)

	// 补充部件解析失败只跳过自身，不影响整个文档
	for _, name := range supplementaryParts(zr) {
		part, err := readXMLPart(zr, name)
		if err != nil {
			continue
		}
		paragraphs = append(paragraphs, extractParagraphs(part)...)
	}

	return NormalizeParagraphs(paragraphs), nil
}

// readXMLPart 读取并解析zip容器内一个XML部件
// 条目不存在或XML格式错误都视为该部件不可用
func readXMLPart(zr *zip.Reader, name string) (*etree.Document, error) {
	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == name {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("entry %s not found in archive", name)
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %v", name, err)
	}
	defer rc.Close()

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(rc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", name, err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("entry %s has no root element", name)
	}

	return doc, nil
}

// supplementaryParts 枚举包内的页眉、页脚、脚注和尾注部件
// 返回的条目名按字节序排序，保证多个页眉/页脚部件的交错顺序是确定的
func supplementaryParts(zr *zip.Reader) []string {
	var names []string
	for _, f := range zr.File {
		name := f.Name
		if !strings.HasPrefix(name, docxWordDir) || !strings.HasSuffix(name, ".xml") {
			continue
		}
		if strings.HasPrefix(name, "word/header") ||
			strings.HasPrefix(name, "word/footer") ||
			name == "word/footnotes.xml" ||
			name == "word/endnotes.xml" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// extractParagraphs 提取一个XML部件中所有段落的文本
// 按文档顺序(深度优先)查找段落元素，包括嵌套在表格等容器内的段落
func extractParagraphs(doc *etree.Document) []string {
	var paragraphs []string
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.NamespaceURI() == wordMLNamespace && child.Tag == tagParagraph {
				paragraphs = append(paragraphs, paragraphText(child))
			}
			walk(child)
		}
	}
	walk(doc.Root())
	return paragraphs
}

// paragraphText 提取单个段落的文本内容
// 深度优先遍历所有后代节点，按出现顺序输出文本run内容、
// 制表符(tab)和换行符(br/cr)，其余元素忽略
// 整体去除首尾空白：段落头尾的显式换行被剥掉，内部换行保留
func paragraphText(p *etree.Element) string {
	var sb strings.Builder
	var walk func(el *etree.Element)
	walk = func(el *etree.Element) {
		for _, child := range el.ChildElements() {
			if child.NamespaceURI() == wordMLNamespace {
				switch child.Tag {
				case tagRunText:
					sb.WriteString(child.Text())
				case tagTab:
					sb.WriteByte('\t')
				case tagLineBreak, tagCarriageReturn:
					sb.WriteByte('\n')
				}
			}
			walk(child)
		}
	}
	walk(p)
	return strings.TrimSpace(sb.String())
}

var (
	trailingSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
)

// NormalizeParagraphs 将段落列表规范化为最终输出文本
// 段落内的嵌入换行被拆成多行；行尾水平空白被去除；
// 三个及以上连续换行压缩为两个(段落间最多保留一个空行)；
// 结果整体去除首尾空白并以恰好一个换行符结尾
// 对自身输出再次应用不会产生变化
func NormalizeParagraphs(paragraphs []string) string {
	var lines []string
	for _, paragraph := range paragraphs {
		lines = append(lines, strings.Split(paragraph, "\n")...)
	}

	text := strings.Join(lines, "\n")
	text = trailingSpaceRe.ReplaceAllString(text, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text) + "\n"
}
