// Package export writes a generated quiz to plain text or PDF.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	FormatText = "txt"
	FormatPDF  = "pdf"

	fontFamily = "Helvetica"
	fontSize   = 11
	lineHeight = 5.5
	// paragraphGap is roughly a 12pt spacer.
	paragraphGap = 4.2
)

// Filename builds the download name for a quiz on topic.
func Filename(topic, ext string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Sprintf("quiz_general.%s", ext)
	}
	return fmt.Sprintf("quiz_%s.%s", strings.ReplaceAll(topic, " ", "_"), ext)
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "text/plain; charset=utf-8"
}

// Write renders raw in the requested format.
func Write(w io.Writer, format, title, raw string) error {
	switch format {
	case FormatText:
		return WriteText(w, raw)
	case FormatPDF:
		return WritePDF(w, title, raw)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteText writes the model output exactly as received.
func WriteText(w io.Writer, raw string) error {
	_, err := io.WriteString(w, raw)
	return err
}

// WritePDF lays out every non-empty line of raw as its own paragraph.
func WritePDF(w io.Writer, title, raw string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont(fontFamily, "", fontSize)

	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pdf.MultiCell(0, lineHeight, tr(line), "", "L", false)
		pdf.Ln(paragraphGap)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}
