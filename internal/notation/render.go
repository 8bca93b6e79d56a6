package notation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	composerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true)
	partStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	barStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	restStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Faint(true)
	attrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)

// Render lays the score out as wrapped measure lines no wider than width. A non-positive width means 80.
func Render(score *Score, width int) string {
	if width <= 0 {
		width = 80
	}
	if score == nil {
		return ""
	}

	var b strings.Builder
	title := score.Title
	if title == "" {
		title = "Untitled"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if score.Composer != "" {
		b.WriteString(composerStyle.Render(score.Composer))
		b.WriteString("\n")
	}

	if len(score.Parts) == 0 {
		b.WriteString(restStyle.Render("(empty score)"))
		b.WriteString("\n")
		return b.String()
	}

	for i, part := range score.Parts {
		if i > 0 {
			b.WriteString("\n")
		}
		name := part.Name
		if name == "" {
			name = part.ID
		}
		b.WriteString(partStyle.Render(name))
		b.WriteString("\n")

		line := ""
		for _, m := range part.Measures {
			cell := renderMeasure(m)
			if line != "" && lipgloss.Width(line)+lipgloss.Width(cell) > width {
				b.WriteString(line + barStyle.Render("|") + "\n")
				line = ""
			}
			line += cell
		}
		if line != "" {
			b.WriteString(line + barStyle.Render("|") + "\n")
		}
	}

	return b.String()
}

func renderMeasure(m Measure) string {
	parts := []string{}
	if attrs := Attributes(m); attrs != "" {
		parts = append(parts, attrStyle.Render(attrs))
	}
	for _, n := range m.Notes {
		token := n.Pitch()
		if n.Chord {
			token = "+" + token
		}
		if n.Rest {
			parts = append(parts, restStyle.Render(token))
			continue
		}
		parts = append(parts, token)
	}
	return barStyle.Render("| ") + strings.Join(parts, " ") + " "
}

// Attributes summarises clef, key and time changes of a measure, e.g. "[G2 2# 3/4]".
func Attributes(m Measure) string {
	var attrs []string
	if m.Clef != "" {
		attrs = append(attrs, m.Clef)
	}
	if m.Fifths != nil {
		attrs = append(attrs, KeySignature(*m.Fifths))
	}
	if m.Time != "" {
		attrs = append(attrs, m.Time)
	}
	if len(attrs) == 0 {
		return ""
	}
	return "[" + strings.Join(attrs, " ") + "]"
}

// KeySignature formats a circle-of-fifths position as "2#", "3b" or "0".
func KeySignature(fifths int) string {
	switch {
	case fifths > 0:
		return fmt.Sprintf("%d#", fifths)
	case fifths < 0:
		return fmt.Sprintf("%db", -fifths)
	default:
		return "0"
	}
}
