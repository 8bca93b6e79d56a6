// package notation parses MusicXML scores and renders them for the terminal
package notation

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/desertthunder/scribe/internal/shared"
	"golang.org/x/net/html/charset"
)

// Score is the subset of a MusicXML score-partwise document the client displays and exports.
type Score struct {
	Title    string
	Composer string
	Parts    []Part
}

// Part is one instrument line.
type Part struct {
	ID       string
	Name     string
	Measures []Measure
}

// Measure holds the notes of one bar together with any attribute changes at its start.
type Measure struct {
	Number    string
	Divisions int    // duration units per quarter note, 0 when not set in this measure
	Time      string // e.g. "4/4", empty when unchanged
	Fifths    *int   // key signature, nil when unchanged
	Clef      string // e.g. "G2", empty when unchanged
	Notes     []Note
}

// Note is a pitched note or a rest.
type Note struct {
	Step     string
	Alter    int
	Octave   int
	Rest     bool
	Chord    bool // sounds with the previous note
	Duration int
	Type     string // quarter, eighth, ...
	Dots     int
}

// Pitch renders the note in scientific pitch notation, e.g. "F#4", or "rest".
func (n Note) Pitch() string {
	if n.Rest {
		return "rest"
	}
	var b strings.Builder
	b.WriteString(n.Step)
	switch {
	case n.Alter > 0:
		b.WriteString(strings.Repeat("#", n.Alter))
	case n.Alter < 0:
		b.WriteString(strings.Repeat("b", -n.Alter))
	}
	b.WriteString(strconv.Itoa(n.Octave))
	return b.String()
}

// NoteCount counts pitched notes and rests across all parts.
func (s *Score) NoteCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, p := range s.Parts {
		for _, m := range p.Measures {
			count += len(m.Notes)
		}
	}
	return count
}

type xmlScore struct {
	XMLName       xml.Name
	WorkTitle     string       `xml:"work>work-title"`
	MovementTitle string       `xml:"movement-title"`
	Creators      []xmlCreator `xml:"identification>creator"`
	ScoreParts    []xmlPartDef `xml:"part-list>score-part"`
	Parts         []xmlPart    `xml:"part"`
	CreditWords   []string     `xml:"credit>credit-words"`
}

type xmlCreator struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type xmlPartDef struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type xmlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []xmlMeasure `xml:"measure"`
}

type xmlMeasure struct {
	Number     string          `xml:"number,attr"`
	Attributes []xmlAttributes `xml:"attributes"`
	Notes      []xmlNote       `xml:"note"`
}

type xmlAttributes struct {
	Divisions int `xml:"divisions"`
	Key       *struct {
		Fifths int `xml:"fifths"`
	} `xml:"key"`
	Time *struct {
		Beats    string `xml:"beats"`
		BeatType string `xml:"beat-type"`
	} `xml:"time"`
	Clef *struct {
		Sign string `xml:"sign"`
		Line string `xml:"line"`
	} `xml:"clef"`
}

type xmlNote struct {
	Pitch *struct {
		Step   string  `xml:"step"`
		Alter  float64 `xml:"alter"`
		Octave int     `xml:"octave"`
	} `xml:"pitch"`
	Rest     *struct{}  `xml:"rest"`
	Chord    *struct{}  `xml:"chord"`
	Duration int        `xml:"duration"`
	Type     string     `xml:"type"`
	Dots     []struct{} `xml:"dot"`
}

// Parse decodes MusicXML markup.
//
// Any well-formed document is accepted; elements outside score-partwise simply yield an empty [Score].
// Malformed markup fails with [shared.ErrMalformedNotation].
func Parse(markup string) (*Score, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, fmt.Errorf("%w: empty document", shared.ErrMalformedNotation)
	}
	return Decode(strings.NewReader(markup))
}

// Decode is [Parse] over a reader.
func Decode(r io.Reader) (*Score, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var doc xmlScore
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedNotation, err)
	}

	score := &Score{}
	if doc.XMLName.Local != "score-partwise" {
		return score, nil
	}

	score.Title = strings.TrimSpace(doc.MovementTitle)
	if score.Title == "" {
		score.Title = strings.TrimSpace(doc.WorkTitle)
	}
	if score.Title == "" && len(doc.CreditWords) > 0 {
		score.Title = strings.TrimSpace(doc.CreditWords[0])
	}
	for _, c := range doc.Creators {
		if c.Type == "composer" {
			score.Composer = strings.TrimSpace(c.Value)
			break
		}
	}

	names := make(map[string]string, len(doc.ScoreParts))
	for _, sp := range doc.ScoreParts {
		names[sp.ID] = strings.TrimSpace(sp.Name)
	}

	for _, xp := range doc.Parts {
		part := Part{ID: xp.ID, Name: names[xp.ID]}
		for _, xm := range xp.Measures {
			part.Measures = append(part.Measures, convertMeasure(xm))
		}
		score.Parts = append(score.Parts, part)
	}

	return score, nil
}

func convertMeasure(xm xmlMeasure) Measure {
	m := Measure{Number: xm.Number}
	for _, a := range xm.Attributes {
		if a.Divisions > 0 {
			m.Divisions = a.Divisions
		}
		if a.Key != nil {
			fifths := a.Key.Fifths
			m.Fifths = &fifths
		}
		if a.Time != nil && a.Time.Beats != "" {
			m.Time = a.Time.Beats + "/" + a.Time.BeatType
		}
		if a.Clef != nil && a.Clef.Sign != "" {
			m.Clef = a.Clef.Sign + a.Clef.Line
		}
	}

	for _, xn := range xm.Notes {
		n := Note{
			Rest:     xn.Rest != nil,
			Chord:    xn.Chord != nil,
			Duration: xn.Duration,
			Type:     xn.Type,
			Dots:     len(xn.Dots),
		}
		if xn.Pitch != nil {
			n.Step = strings.ToUpper(strings.TrimSpace(xn.Pitch.Step))
			n.Alter = int(xn.Pitch.Alter)
			n.Octave = xn.Pitch.Octave
		} else {
			n.Rest = true
		}
		m.Notes = append(m.Notes, n)
	}
	return m
}
