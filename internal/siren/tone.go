package siren

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Tone describes a wailing siren: a sine whose pitch sweeps between Low and High once per Period.
type Tone struct {
	Low    float64       `json:"low"`
	High   float64       `json:"high"`
	Period time.Duration `json:"period"`
	Volume float64       `json:"volume"`
}

// DefaultTone is a slow American-style wail.
func DefaultTone() Tone {
	return Tone{Low: 650, High: 1450, Period: 4 * time.Second, Volume: 0.3}
}

// wail is an endless oscillator sweeping its frequency with a slow sine LFO.
type wail struct {
	tone     Tone
	rate     beep.SampleRate
	phase    float64
	position int
	period   int
}

// NewWail creates an unbounded wail streamer at the given sample rate.
func NewWail(tone Tone, rate beep.SampleRate) beep.Streamer {
	period := rate.N(tone.Period)
	if period <= 0 {
		period = 1
	}
	return newVolume(&wail{tone: tone, rate: rate, period: period}, tone.Volume)
}

func (w *wail) Stream(samples [][2]float64) (n int, ok bool) {
	mid := (w.tone.Low + w.tone.High) / 2
	depth := (w.tone.High - w.tone.Low) / 2

	for i := range samples {
		lfo := math.Sin(2 * math.Pi * float64(w.position) / float64(w.period))
		freq := mid + depth*lfo

		val := math.Sin(2 * math.Pi * w.phase)
		samples[i][0] = val
		samples[i][1] = val

		w.phase += freq / float64(w.rate)
		w.phase -= math.Floor(w.phase)
		w.position = (w.position + 1) % w.period
	}
	return len(samples), true
}

func (w *wail) Err() error { return nil }

// newVolume scales s linearly; zero or negative volume is silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}
