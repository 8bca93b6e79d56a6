// package playback decodes transcribed note events and schedules them on a voice pool
package playback

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/scribe/internal/shared"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const defaultBPM = 120.0

// NoteEvent is a note-on or note-off at an offset from the start of the piece.
type NoteEvent struct {
	At       time.Duration
	On       bool
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// Decode turns the backend's base64 payload into time-ordered note events.
func Decode(payload string) ([]NoteEvent, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", shared.ErrMalformedMIDI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nil, fmt.Errorf("%w: invalid base64: %v", shared.ErrMalformedMIDI, err)
		}
	}
	return DecodeSMF(data)
}

type timedMessage struct {
	tick  uint64
	track int
	index int
	msg   smf.Message
}

// DecodeSMF reads a standard MIDI file, merging all tracks and converting ticks to wall time through the tempo map.
func DecodeSMF(data []byte) ([]NoteEvent, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedMIDI, err)
	}

	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported time format %v", shared.ErrMalformedMIDI, s.TimeFormat)
	}

	var merged []timedMessage
	for ti, track := range s.Tracks {
		var abs uint64
		for ei, ev := range track {
			abs += uint64(ev.Delta)
			merged = append(merged, timedMessage{tick: abs, track: ti, index: ei, msg: ev.Message})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].tick != merged[j].tick {
			return merged[i].tick < merged[j].tick
		}
		return merged[i].track < merged[j].track
	})

	var (
		events   []NoteEvent
		bpm      = defaultBPM
		elapsed  time.Duration
		lastTick uint64
	)
	for _, tm := range merged {
		if tm.tick > lastTick {
			elapsed += ticks.Duration(bpm, uint32(tm.tick-lastTick))
			lastTick = tm.tick
		}

		var tempo float64
		if tm.msg.GetMetaTempo(&tempo) {
			if tempo > 0 {
				bpm = tempo
			}
			continue
		}

		var ch, key, vel uint8
		msg := midi.Message(tm.msg)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, NoteEvent{At: elapsed, On: true, Channel: ch, Key: key, Velocity: vel})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, NoteEvent{At: elapsed, Channel: ch, Key: key})
		}
	}

	return events, nil
}

// Length is the offset of the last event.
func Length(events []NoteEvent) time.Duration {
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].At
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName spells a MIDI key number with middle C as C4.
func NoteName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key)/12-1)
}
