package formatter

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/scribe/internal/notation"
	"github.com/desertthunder/scribe/internal/shared"
	th "github.com/desertthunder/scribe/internal/testing"
)

func testScore() *notation.Score {
	fifths := 1
	return &notation.Score{
		Title:    "Reel (live) .mp3",
		Composer: "Trad.",
		Parts: []notation.Part{{
			ID:   "P1",
			Name: "Violin",
			Measures: []notation.Measure{
				{Number: "1", Time: "4/4", Fifths: &fifths, Clef: "G2", Notes: []notation.Note{
					{Step: "G", Octave: 4, Duration: 1, Type: "quarter"},
					{Step: "B", Octave: 4, Chord: true, Duration: 1, Type: "quarter"},
					{Rest: true, Duration: 1, Type: "quarter"},
					{Step: "F", Alter: 1, Octave: 5, Duration: 2, Type: "half", Dots: 1},
				}},
				{Number: "2", Notes: []notation.Note{{Step: "D", Octave: 5, Duration: 4, Type: "whole"}}},
			},
		}},
	}
}

func TestExporters(t *testing.T) {
	score := testScore()

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(score)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Part,Measure,Pitch,Duration,Type,Chord") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "Violin,1,B4,1,quarter,true") {
			t.Errorf("CSV missing chord row, got: %s", output)
		}
		if lines := strings.Count(output, "\n"); lines != 6 {
			t.Errorf("expected 6 lines, got %d", lines)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(score)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{"# Reel (live) .mp3", "**Composer**: Trad.", "**Notes**: 5", "## Violin", "1. `[G2 1# 4/4] G4/quarter +B4/quarter rest/quarter F#5/half.`"} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(&notation.Score{})
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		if !strings.HasPrefix(string(data), "Title: Untitled\n") {
			t.Errorf("unexpected text output %q", data)
		}
	})

	t.Run("ExportToPDF", func(t *testing.T) {
		data, err := ExportToPDF(score)
		if err != nil {
			t.Fatalf("ExportToPDF failed: %v", err)
		}
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			t.Errorf("output is not a PDF: %q", data[:min(len(data), 16)])
		}
	})
}

func TestParseFormat(t *testing.T) {
	tt := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatPDF},
		{in: "PDF", want: FormatPDF},
		{in: "markdown", want: FormatMarkdown},
		{in: "text", want: FormatText},
		{in: "csv", want: FormatCSV},
		{in: "docx", wantErr: true},
	}

	for _, tc := range tt {
		got, err := ParseFormat(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestExporter(t *testing.T) {
	ctx := context.Background()

	t.Run("writes derived filename", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "exports")
		e := NewExporter(dir, nil)

		path, err := e.Export(ctx, testScore(), FormatPDF)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if filepath.Base(path) != "Reel.pdf" {
			t.Errorf("path = %s, want Reel.pdf", path)
		}
		th.AssertFileExists(t, path)
		if e.Busy() {
			t.Error("busy flag should be cleared after success")
		}
	})

	t.Run("default name for untitled scores", func(t *testing.T) {
		e := NewExporter(t.TempDir(), nil)
		path, err := e.Export(ctx, &notation.Score{}, FormatMarkdown)
		if err != nil {
			t.Fatalf("Export() error = %v", err)
		}
		if filepath.Base(path) != "string-scribe-export.md" {
			t.Errorf("path = %s", path)
		}
	})

	t.Run("rejects concurrent export", func(t *testing.T) {
		e := NewExporter(t.TempDir(), nil)
		e.busy.Store(true)

		if _, err := e.Export(ctx, testScore(), FormatPDF); !errors.Is(err, shared.ErrBusy) {
			t.Errorf("expected ErrBusy, got %v", err)
		}
		if !e.Busy() {
			t.Error("rejected call must not clear the running export's flag")
		}
	})

	t.Run("clears busy on failure", func(t *testing.T) {
		blocker := filepath.Join(t.TempDir(), "file")
		th.MustWriteFile(t, blocker, []byte("x"))

		e := NewExporter(filepath.Join(blocker, "sub"), nil)
		if _, err := e.Export(ctx, testScore(), FormatText); err == nil {
			t.Fatal("expected error writing under a regular file")
		}
		if e.Busy() {
			t.Error("busy flag should be cleared after failure")
		}
		if _, err := os.Stat(filepath.Join(blocker, "sub")); err == nil {
			t.Error("directory should not exist")
		}
	})

	t.Run("nil score", func(t *testing.T) {
		if _, err := NewExporter("", nil).Export(ctx, nil, FormatPDF); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
