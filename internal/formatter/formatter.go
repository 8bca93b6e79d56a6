// package formatter exports transcribed scores to documents (PDF, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/scribe/internal/notation"
	"github.com/go-pdf/fpdf"
)

// Format is a document format supported by the exporter.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ParseFormat accepts the format names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pdf":
		return FormatPDF, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use pdf, csv, md or txt)", s)
	}
}

// Ext is the file extension including the dot.
func (f Format) Ext() string { return "." + string(f) }

// Render encodes score in format f.
func Render(score *notation.Score, f Format) ([]byte, error) {
	switch f {
	case FormatPDF:
		return ExportToPDF(score)
	case FormatCSV:
		return ExportToCSV(score)
	case FormatMarkdown:
		return ExportToMarkdown(score)
	case FormatText:
		return ExportToText(score)
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

func title(score *notation.Score) string {
	if score.Title != "" {
		return score.Title
	}
	return "Untitled"
}

func partName(p notation.Part) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// measureLine lists a measure's notes, prefixed with its attribute changes.
func measureLine(m notation.Measure) string {
	tokens := []string{}
	if attrs := notation.Attributes(m); attrs != "" {
		tokens = append(tokens, attrs)
	}
	for _, n := range m.Notes {
		token := n.Pitch()
		if n.Type != "" {
			token += "/" + n.Type + strings.Repeat(".", n.Dots)
		}
		if n.Chord {
			token = "+" + token
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}

// ExportToCSV writes one row per note with columns: Part, Measure, Pitch, Duration, Type, Chord
func ExportToCSV(score *notation.Score) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Part", "Measure", "Pitch", "Duration", "Type", "Chord"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, part := range score.Parts {
		for _, m := range part.Measures {
			for _, n := range m.Notes {
				record := []string{
					partName(part),
					m.Number,
					n.Pitch(),
					strconv.Itoa(n.Duration),
					n.Type,
					strconv.FormatBool(n.Chord),
				}
				if err := writer.Write(record); err != nil {
					return nil, fmt.Errorf("failed to write CSV record: %w", err)
				}
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the score as a Markdown document with one section per part
func ExportToMarkdown(score *notation.Score) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(score))
	if score.Composer != "" {
		fmt.Fprintf(&buf, "**Composer**: %s\n\n", score.Composer)
	}
	fmt.Fprintf(&buf, "**Parts**: %d\n", len(score.Parts))
	fmt.Fprintf(&buf, "**Notes**: %d\n\n", score.NoteCount())

	for _, part := range score.Parts {
		fmt.Fprintf(&buf, "## %s\n\n", partName(part))
		for _, m := range part.Measures {
			fmt.Fprintf(&buf, "%s. `%s`\n", m.Number, measureLine(m))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a score to plain text
func ExportToText(score *notation.Score) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Title: %s\n", title(score))
	if score.Composer != "" {
		fmt.Fprintf(&buf, "Composer: %s\n", score.Composer)
	}
	fmt.Fprintf(&buf, "Notes: %d\n\n", score.NoteCount())

	for _, part := range score.Parts {
		fmt.Fprintf(&buf, "%s\n", partName(part))
		for _, m := range part.Measures {
			fmt.Fprintf(&buf, "  %s: %s\n", m.Number, measureLine(m))
		}
	}

	return buf.Bytes(), nil
}

// ExportToPDF lays the score out as an A4 document: title block, then one measure per line for each part.
func ExportToPDF(score *notation.Score) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(title(score), true)
	pdf.SetCreator("String Scribe", true)
	pdf.SetCreationDate(time.Now())
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, tr(title(score)), "", 1, "C", false, 0, "")
	if score.Composer != "" {
		pdf.SetFont("Helvetica", "I", 12)
		pdf.CellFormat(0, 8, tr(score.Composer), "", 1, "C", false, 0, "")
	}
	pdf.Ln(6)

	if len(score.Parts) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, "(empty score)", "", 1, "C", false, 0, "")
	}

	for _, part := range score.Parts {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 10, tr(partName(part)), "B", 1, "L", false, 0, "")
		pdf.Ln(2)

		for _, m := range part.Measures {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(14, 6, tr(m.Number), "", 0, "R", false, 0, "")
			pdf.SetFont("Courier", "", 10)
			pdf.MultiCell(0, 6, tr(" "+measureLine(m)), "", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
