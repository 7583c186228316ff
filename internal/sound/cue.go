// Package sound synthesizes the two-tone reminder cue and plays it.
package sound

import (
	"encoding/binary"
	"io"
	"math"
	"time"
)

// Cue shape
const (
	SampleRate    = 44100
	FirstTone     = 800.0
	SecondTone    = 600.0
	ToneSwitch    = 100 * time.Millisecond
	CueLength     = 300 * time.Millisecond
	StartGain     = 0.3
	EndGain       = 0.01
	bitsPerSample = 16
)

// GainAt returns the envelope value at offset t: exponential decay from
// StartGain to EndGain over CueLength
func GainAt(t time.Duration) float64 {
	if t <= 0 {
		return StartGain
	}
	if t >= CueLength {
		return EndGain
	}
	frac := t.Seconds() / CueLength.Seconds()
	return StartGain * math.Pow(EndGain/StartGain, frac)
}

// FrequencyAt returns the oscillator frequency at offset t
func FrequencyAt(t time.Duration) float64 {
	if t < ToneSwitch {
		return FirstTone
	}
	return SecondTone
}

// Cue renders the cue as mono 16-bit samples at sampleRate
func Cue(sampleRate int) []int16 {
	n := sampleRate * int(CueLength/time.Millisecond) / 1000
	samples := make([]int16, n)

	// integrate phase so the frequency step does not click
	phase := 0.0
	step := time.Second / time.Duration(sampleRate)
	for i := range samples {
		t := time.Duration(i) * step
		v := math.Sin(phase) * GainAt(t)
		samples[i] = int16(v * math.MaxInt16)
		phase += 2 * math.Pi * FrequencyAt(t) / float64(sampleRate)
	}
	return samples
}

// EncodeWAV writes samples as a mono PCM RIFF/WAVE stream
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	dataSize := uint32(len(samples) * bitsPerSample / 8)
	blockAlign := uint16(bitsPerSample / 8)

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),         // fmt chunk size
		uint16(1),          // PCM
		uint16(1),          // mono
		uint32(sampleRate), // sample rate
		uint32(sampleRate) * uint32(blockAlign),
		blockAlign,
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, samples)
}
