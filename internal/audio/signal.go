package audio

import (
	"math"
	"time"
)

// fullScale is the absolute value of the most negative PCM-16 sample.
const fullScale = 32768.0

// silenceFloorDB is the energy reported for an all-zero window.
const silenceFloorDB = -96.0

// Signal is a mono PCM-16 audio signal at a fixed sample rate.
// A Signal is treated as immutable once captured; derived signals share the
// backing array and must not be written to.
type Signal struct {
	Samples    []int16
	SampleRate int
}

// Len returns the number of samples in the signal.
func (s Signal) Len() int {
	return len(s.Samples)
}

// Duration returns the playback duration of the signal.
func (s Signal) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(s.Samples)) * time.Second / time.Duration(s.SampleRate)
}

// Slice returns the sub-signal covering samples [start, end).
// The returned signal shares the backing array with the parent.
func (s Signal) Slice(start, end int) Signal {
	return Signal{
		Samples:    s.Samples[start:end],
		SampleRate: s.SampleRate,
	}
}

// DurationToSamples converts a duration to a sample count at the given rate.
func DurationToSamples(d time.Duration, sampleRate int) int {
	return int(d * time.Duration(sampleRate) / time.Second)
}

// Normalize scales the signal so that its peak amplitude reaches
// (1 - headroom) of full scale. A headroom of 0.1 brings the loudest sample
// to roughly 90% of full scale, which makes a fixed silence threshold behave
// consistently across recordings of different levels. The input is not
// modified; a new signal with its own backing array is returned. A silent
// signal is returned as a copy without scaling.
func Normalize(s Signal, headroom float64) Signal {
	out := Signal{
		Samples:    make([]int16, len(s.Samples)),
		SampleRate: s.SampleRate,
	}

	var peak int32
	for _, sample := range s.Samples {
		v := int32(sample)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}

	if peak == 0 {
		copy(out.Samples, s.Samples)
		return out
	}

	target := (1.0 - headroom) * (fullScale - 1)
	gain := target / float64(peak)

	for i, sample := range s.Samples {
		scaled := float64(sample) * gain
		if scaled > fullScale-1 {
			scaled = fullScale - 1
		} else if scaled < -fullScale {
			scaled = -fullScale
		}
		out.Samples[i] = int16(math.Round(scaled))
	}

	return out
}

// WindowRMSdB computes the RMS energy of a window of samples in dB relative
// to full scale. An empty or all-zero window reports the silence floor.
func WindowRMSdB(samples []int16) float64 {
	if len(samples) == 0 {
		return silenceFloorDB
	}

	var energy float64
	for _, sample := range samples {
		energy += float64(sample) * float64(sample)
	}
	rms := math.Sqrt(energy / float64(len(samples)))

	if rms == 0 {
		return silenceFloorDB
	}

	db := 20 * math.Log10(rms/fullScale)
	if db < silenceFloorDB {
		return silenceFloorDB
	}
	return db
}

// BytesToSamples converts little-endian PCM-16 bytes to samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts samples to little-endian PCM-16 bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, sample := range samples {
		data[i*2] = byte(sample)
		data[i*2+1] = byte(uint16(sample) >> 8)
	}
	return data
}
