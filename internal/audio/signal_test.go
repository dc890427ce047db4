package audio

import (
	"testing"
	"time"
)

func TestSignalDuration(t *testing.T) {
	sig := Signal{Samples: make([]int16, 16000), SampleRate: 16000}

	if sig.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", sig.Duration())
	}

	empty := Signal{SampleRate: 16000}
	if empty.Duration() != 0 {
		t.Errorf("Expected zero duration for empty signal, got %v", empty.Duration())
	}

	noRate := Signal{Samples: make([]int16, 100)}
	if noRate.Duration() != 0 {
		t.Errorf("Expected zero duration without sample rate, got %v", noRate.Duration())
	}
}

func TestDurationToSamples(t *testing.T) {
	if got := DurationToSamples(time.Second, 16000); got != 16000 {
		t.Errorf("Expected 16000 samples, got %d", got)
	}

	if got := DurationToSamples(500*time.Millisecond, 8000); got != 4000 {
		t.Errorf("Expected 4000 samples, got %d", got)
	}

	if got := DurationToSamples(10*time.Millisecond, 16000); got != 160 {
		t.Errorf("Expected 160 samples, got %d", got)
	}
}

func TestNormalizePeak(t *testing.T) {
	sig := Signal{
		Samples:    []int16{0, 1000, -2000, 500},
		SampleRate: 16000,
	}

	out := Normalize(sig, 0.1)

	// Peak of 2000 should scale to about 90% of full scale.
	var peak int16
	for _, s := range out.Samples {
		if s > peak {
			peak = s
		}
		if -s > peak {
			peak = -s
		}
	}

	wantF := 0.9 * (fullScale - 1)
	want := int16(wantF)
	if peak < want-1 || peak > want+1 {
		t.Errorf("Expected peak near %d, got %d", want, peak)
	}

	// Input must not be modified.
	if sig.Samples[1] != 1000 || sig.Samples[2] != -2000 {
		t.Error("Normalize modified its input")
	}
}

func TestNormalizePreservesSilence(t *testing.T) {
	sig := Signal{Samples: make([]int16, 100), SampleRate: 16000}

	out := Normalize(sig, 0.1)

	if out.Len() != sig.Len() {
		t.Fatalf("Expected %d samples, got %d", sig.Len(), out.Len())
	}

	for i, s := range out.Samples {
		if s != 0 {
			t.Fatalf("Expected silent output, got %d at index %d", s, i)
		}
	}
}

func TestNormalizeZeroSamplesStayZero(t *testing.T) {
	sig := Signal{
		Samples:    []int16{0, 5000, 0, -5000},
		SampleRate: 16000,
	}

	out := Normalize(sig, 0.1)

	if out.Samples[0] != 0 || out.Samples[2] != 0 {
		t.Error("Expected zero samples to remain zero after scaling")
	}
}

func TestWindowRMSdB(t *testing.T) {
	// Constant full-scale-half amplitude: RMS = 16384, about -6 dB.
	loud := make([]int16, 160)
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 16384
		} else {
			loud[i] = -16384
		}
	}

	db := WindowRMSdB(loud)
	if db < -7 || db > -5 {
		t.Errorf("Expected about -6 dB, got %f", db)
	}

	quiet := make([]int16, 160)
	for i := range quiet {
		if i%2 == 0 {
			quiet[i] = 50
		} else {
			quiet[i] = -50
		}
	}

	if got := WindowRMSdB(quiet); got >= -40 {
		t.Errorf("Expected quiet window below -40 dB, got %f", got)
	}

	if got := WindowRMSdB(make([]int16, 160)); got != silenceFloorDB {
		t.Errorf("Expected silence floor for zero window, got %f", got)
	}

	if got := WindowRMSdB(nil); got != silenceFloorDB {
		t.Errorf("Expected silence floor for empty window, got %f", got)
	}
}

func TestBytesToSamplesRoundTrip(t *testing.T) {
	samples := []int16{0, 1, -1, 32767, -32768, 12345, -12345}

	data := SamplesToBytes(samples)
	if len(data) != len(samples)*2 {
		t.Fatalf("Expected %d bytes, got %d", len(samples)*2, len(data))
	}

	back := BytesToSamples(data)
	if len(back) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(back))
	}

	for i := range samples {
		if back[i] != samples[i] {
			t.Errorf("Sample %d: expected %d, got %d", i, samples[i], back[i])
		}
	}
}

func TestBytesToSamplesOddLength(t *testing.T) {
	samples := BytesToSamples([]byte{0x01, 0x02, 0x03})

	if len(samples) != 1 {
		t.Fatalf("Expected 1 sample from 3 bytes, got %d", len(samples))
	}

	if samples[0] != 0x0201 {
		t.Errorf("Expected sample 0x0201, got 0x%04x", samples[0])
	}
}
