// Package siren manages the per-session siren voice and renders it to WAV.
package siren

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// DefaultSampleRate is used by buses and renders that do not specify one.
const DefaultSampleRate = beep.SampleRate(44100)

// Bus is a session's audio output. Voices are mounted on it through Handles.
type Bus struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  *beep.Mixer
	voices map[*Handle]struct{}
}

// NewBus creates an empty bus at the given sample rate.
func NewBus(rate beep.SampleRate) *Bus {
	return &Bus{
		rate:   rate,
		mixer:  &beep.Mixer{},
		voices: make(map[*Handle]struct{}),
	}
}

// SampleRate returns the bus sample rate.
func (b *Bus) SampleRate() beep.SampleRate {
	return b.rate
}

// Active is the number of voices currently mounted.
func (b *Bus) Active() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.voices)
}

// Stream pulls mixed audio from every mounted voice. An empty bus streams silence.
func (b *Bus) Stream(samples [][2]float64) (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mixer.Stream(samples)
}

func (b *Bus) Err() error { return nil }

// Acquire mounts a new wail voice on the bus. The caller owns the returned Handle and must Release it.
func (b *Bus) Acquire(tone Tone) *Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := &Handle{
		bus:  b,
		ctrl: &beep.Ctrl{Streamer: NewWail(tone, b.rate)},
	}
	b.voices[h] = struct{}{}
	b.mixer.Add(h.ctrl)
	return h
}

// Close releases every voice still mounted.
func (b *Bus) Close() {
	b.mu.Lock()
	handles := make([]*Handle, 0, len(b.voices))
	for h := range b.voices {
		handles = append(handles, h)
	}
	b.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
}

// Record encodes d of the bus output as a 16-bit stereo WAV.
func (b *Bus) Record(w io.WriteSeeker, d time.Duration) error {
	return encode(w, beep.Take(b.rate.N(d), b), b.rate)
}

// Handle is one mounted voice.
type Handle struct {
	bus      *Bus
	ctrl     *beep.Ctrl
	released bool
}

// Release stops the voice and disconnects it from the bus. Calling it again is a no-op.
func (h *Handle) Release() {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()

	if h.released {
		return
	}
	h.released = true
	// A Ctrl without a streamer reports itself drained and the mixer drops it.
	h.ctrl.Paused = true
	h.ctrl.Streamer = nil
	delete(h.bus.voices, h)
}

// Released reports whether Release has been called.
func (h *Handle) Released() bool {
	h.bus.mu.Lock()
	defer h.bus.mu.Unlock()
	return h.released
}

// RenderWAV writes d of the given tone as a WAV file.
func RenderWAV(w io.WriteSeeker, tone Tone, rate beep.SampleRate, d time.Duration) error {
	return encode(w, beep.Take(rate.N(d), NewWail(tone, rate)), rate)
}

func encode(w io.WriteSeeker, s beep.Streamer, rate beep.SampleRate) error {
	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(w, s, format); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return nil
}
