package extract

import (
	"archive/zip"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"quiz-rag/internal/models"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func writeZip(t *testing.T, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtract_Text(t *testing.T) {
	path := writeFile(t, "notes.TXT", "Mitochondria make ATP.\n\nRibosomes make proteins.")
	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria make ATP.\n\nRibosomes make proteins.", got)
}

func TestExtract_Markdown(t *testing.T) {
	src := "# Cells\n\nThe **cell** is the unit of *life*.\nIt has a [membrane](http://example.com).\n\n" +
		"- nucleus\n- ribosome\n\n```\nfmt.Println(x)\n```\n\n| organelle | role |\n|---|---|\n| nucleus | control |\n"
	got, err := Extract(writeFile(t, "cells.md", src))
	require.NoError(t, err)

	assert.Contains(t, got, "Cells\n\nThe cell is the unit of life.\nIt has a membrane.")
	assert.Contains(t, got, "nucleus")
	assert.Contains(t, got, "ribosome")
	assert.Contains(t, got, "fmt.Println(x)")
	assert.Contains(t, got, "organelle\trole")
	assert.Contains(t, got, "nucleus\tcontrol")
	for _, markup := range []string{"**", "# ", "http://example.com", "|", "```"} {
		assert.NotContains(t, got, markup)
	}
}

func TestExtract_PPTX(t *testing.T) {
	slide := func(lines ...string) string {
		body := `<?xml version="1.0" encoding="UTF-8"?><p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree><p:sp><p:txBody>`
		for _, l := range lines {
			body += fmt.Sprintf("<a:p><a:r><a:t>%s</a:t></a:r></a:p>", l)
		}
		return body + `</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	path := writeZip(t, "deck.pptx", map[string]string{
		"ppt/slides/slide10.xml":            slide("Ten"),
		"ppt/slides/slide2.xml":             slide("Two", "second line"),
		"ppt/slides/slide1.xml":             slide("One &amp; only"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": slide("layout text"),
	})

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "One & only\n\nTwo\nsecond line\n\nTen", got)
}

func TestExtract_DOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Photosynthesis</w:t></w:r><w:r><w:t xml:space="preserve"> happens in leaves.</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Chlorophyll is green.</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	path := writeZip(t, "notes.docx", map[string]string{
		"word/document.xml":            doc,
		"word/_rels/document.xml.rels": "<Relationships/>",
	})

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis happens in leaves.\nChlorophyll is green.", got)
}

func TestExtract_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Glossary")
	require.NoError(t, err)
	for _, pair := range [][2]string{{"term", "meaning"}, {"ATP", "energy currency"}} {
		row := sheet.AddRow()
		row.AddCell().SetString(pair[0])
		row.AddCell().SetString(pair[1])
	}
	path := filepath.Join(t.TempDir(), "glossary.xlsx")
	require.NoError(t, f.Save(path))

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Sheet: Glossary\nterm\tmeaning\nATP\tenergy currency", got)
}

func TestExtract_Workbook(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "enzyme"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "catalyst"))
	path := filepath.Join(t.TempDir(), "terms.xlsm")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	got, err := Extract(path)
	require.NoError(t, err)
	assert.Equal(t, "Sheet: Sheet1\nenzyme\tcatalyst", got)
}

func TestExtract_Errors(t *testing.T) {
	_, err := Extract(writeFile(t, "slides.key", "whatever"))
	assert.True(t, errors.Is(err, models.ErrUnsupportedFormat))

	_, err = Extract(writeFile(t, "blank.txt", "  \n\t\n"))
	assert.True(t, errors.Is(err, models.ErrEmptyDocument))

	_, err = Extract(writeFile(t, "broken.pdf", "not a pdf"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrEmptyDocument))

	_, err = Extract(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.pptx", "d.xlsx", "e.xltm", "f.md", "g.txt"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"a.doc", "b.ods", "noext"} {
		assert.False(t, Supported(name), name)
	}
}
