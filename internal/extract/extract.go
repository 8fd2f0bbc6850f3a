// Package extract reads the plain text out of uploaded study material.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"quiz-rag/internal/models"
)

// sectionSeparator joins pages, slides and sheets so the chunker can
// break between them.
const sectionSeparator = "\n\n"

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

var extractors = map[string]func(string) (string, error){
	".pdf":  parsePDF,
	".docx": parseDOCX,
	".pptx": parsePPTX,
	".xlsx": parseXLSX,
	".xlsm": parseWorkbook,
	".xltx": parseWorkbook,
	".xltm": parseWorkbook,
	".md":   parseMarkdown,
	".txt":  parseText,
}

// Supported reports whether filename has an extension Extract can read.
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extract returns the text of the file at path, chosen by its extension.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	parse, ok := extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedFormat, ext)
	}

	content, err := parse(path)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("extract %s: %w", filepath.Base(path), models.ErrEmptyDocument)
	}

	log.Debug().Str("file", filepath.Base(path)).Int("chars", len(content)).Msg("Extracted document text")
	return content, nil
}

func parsePDF(filePath string) (string, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return joinSections(pages), nil
}

func parseDOCX(filePath string) (string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	// GetContent returns the raw document.xml
	return xmlText(strings.NewReader(r.Editable().GetContent()))
}

func parsePPTX(filePath string) (string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideName.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	texts := make([]string, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		slideText, err := xmlText(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("slide %d: %w", s.num, err)
		}
		texts = append(texts, slideText)
	}
	return joinSections(texts), nil
}

func parseXLSX(filePath string) (string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return "", err
	}

	sheets := make([]string, 0, len(f.Sheets))
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, sheetText(sheet.Name, rows))
	}
	return joinSections(sheets), nil
}

// parseWorkbook reads the macro and template workbook variants.
func parseWorkbook(filePath string) (string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", name, err)
		}
		sheets = append(sheets, sheetText(name, rows))
	}
	return joinSections(sheets), nil
}

func parseMarkdown(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return markdownText(data), nil
}

func parseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func sheetText(name string, rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("Sheet: %s\n%s", name, b.String())
}

func joinSections(sections []string) string {
	kept := sections[:0]
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, sectionSeparator)
}

// xmlText collects the character data of every <t> element, one line per
// <p> paragraph. Both WordprocessingML and DrawingML use these names.
func xmlText(r io.Reader) (string, error) {
	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// markdownText renders a markdown document as plain text: markup dropped,
// one blank line between blocks, table cells separated by tabs.
func markdownText(src []byte) string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	endBlock := func() {
		for buf.Len() > 0 && !bytes.HasSuffix(buf.Bytes(), []byte("\n\n")) {
			buf.WriteByte('\n')
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.String:
			if entering {
				buf.Write(node.Value)
			}
			return ast.WalkContinue, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(src))
				}
			} else {
				endBlock()
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}

		switch n.Kind() {
		case extast.KindTableCell:
			if !entering && n.NextSibling() != nil {
				buf.WriteByte('\t')
			}
			return ast.WalkContinue, nil
		case extast.KindTableRow, extast.KindTableHeader:
			if !entering {
				buf.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			endBlock()
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}
