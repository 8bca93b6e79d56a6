package playback

import (
	"slices"
	"sync"
)

// VoicePool is the instrument that sounds scheduled notes.
type VoicePool interface {
	NoteOn(channel, key, velocity uint8)
	NoteOff(channel, key uint8)
	ReleaseAll()
}

// VoiceEvent reports a change in the set of sounding notes.
type VoiceEvent struct {
	On       bool
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// Voices is an in-process [VoicePool] that tracks which notes are held and reports changes to a listener.
type Voices struct {
	mu       sync.Mutex
	held     map[uint16]uint8
	listener func(VoiceEvent)
}

// NewVoices creates an empty pool. listener may be nil and is called synchronously.
func NewVoices(listener func(VoiceEvent)) *Voices {
	return &Voices{held: make(map[uint16]uint8), listener: listener}
}

func voiceID(channel, key uint8) uint16 { return uint16(channel)<<8 | uint16(key) }

func (v *Voices) NoteOn(channel, key, velocity uint8) {
	v.mu.Lock()
	v.held[voiceID(channel, key)] = velocity
	v.mu.Unlock()
	v.notify(VoiceEvent{On: true, Channel: channel, Key: key, Velocity: velocity})
}

func (v *Voices) NoteOff(channel, key uint8) {
	v.mu.Lock()
	_, ok := v.held[voiceID(channel, key)]
	delete(v.held, voiceID(channel, key))
	v.mu.Unlock()
	if ok {
		v.notify(VoiceEvent{Channel: channel, Key: key})
	}
}

// ReleaseAll silences every held note.
func (v *Voices) ReleaseAll() {
	v.mu.Lock()
	released := make([]uint16, 0, len(v.held))
	for id := range v.held {
		released = append(released, id)
	}
	clear(v.held)
	v.mu.Unlock()

	slices.Sort(released)
	for _, id := range released {
		v.notify(VoiceEvent{Channel: uint8(id >> 8), Key: uint8(id)})
	}
}

// Held returns the sounding keys in ascending order.
func (v *Voices) Held() []uint8 {
	v.mu.Lock()
	defer v.mu.Unlock()
	keys := make([]uint8, 0, len(v.held))
	for id := range v.held {
		keys = append(keys, uint8(id))
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}

func (v *Voices) notify(ev VoiceEvent) {
	if v.listener != nil {
		v.listener(ev)
	}
}
