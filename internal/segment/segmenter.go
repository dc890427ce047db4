package segment

import (
	"time"

	"github.com/iicchikun/ii-speech-to-text/internal/audio"
)

// analysisHop is the RMS analysis window used for silence detection.
// Non-overlapping 10 ms windows keep the scan linear while resolving cut
// points well below the minimum silence duration.
const analysisHop = 10 * time.Millisecond

// SilenceOptions control how a signal is split on silence.
type SilenceOptions struct {
	// MinSilence is the minimum duration of a low-energy run for it to
	// count as a cut point.
	MinSilence time.Duration

	// ThresholdDB is the RMS energy (dB relative to full scale) below
	// which a window is considered silent.
	ThresholdDB float64

	// KeepSilence is the amount of surrounding silence kept on each side
	// of a speech segment, so word onsets and offsets are not clipped.
	KeepSilence time.Duration

	// MinSegment is the minimum viable segment duration; shorter segments
	// are dropped as too short to contain recognizable speech.
	MinSegment time.Duration
}

// DefaultSilenceOptions returns the silence detection defaults.
func DefaultSilenceOptions() SilenceOptions {
	return SilenceOptions{
		MinSilence:  time.Second,
		ThresholdDB: -40,
		KeepSilence: 500 * time.Millisecond,
		MinSegment:  500 * time.Millisecond,
	}
}

// Segment is a speech region of a parent signal. Start is the offset of the
// segment in the parent, in samples. The segment shares the parent's backing
// array and must not be mutated.
type Segment struct {
	audio.Signal
	Start int
}

// sampleRange is a half-open interval [start, end) in samples.
type sampleRange struct {
	start int
	end   int
}

// SplitOnSilence splits a signal into speech segments at its low-energy
// regions. Maximal runs where the 10 ms RMS energy stays below
// opts.ThresholdDB for at least opts.MinSilence become cut points; the
// complement runs are returned as segments, each extended by
// opts.KeepSilence on both sides. Interior padding is clamped to the
// midpoint of the silence gap so segments never overlap. Segments shorter
// than opts.MinSegment are dropped.
//
// The function is pure: it never mutates the input and an empty signal
// yields no segments. Callers should normalize the signal first so the
// threshold behaves consistently across recording levels.
func SplitOnSilence(sig audio.Signal, opts SilenceOptions) []Segment {
	if sig.Len() == 0 || sig.SampleRate <= 0 {
		return nil
	}

	hop := audio.DurationToSamples(analysisHop, sig.SampleRate)
	if hop < 1 {
		hop = 1
	}

	silences := detectSilences(sig, hop, opts)
	speech := invertRanges(silences, sig.Len())
	speech = padRanges(speech, silences, sig, opts.KeepSilence)

	minSegment := audio.DurationToSamples(opts.MinSegment, sig.SampleRate)

	segments := make([]Segment, 0, len(speech))
	for _, r := range speech {
		if r.end-r.start < minSegment {
			continue
		}
		segments = append(segments, Segment{
			Signal: sig.Slice(r.start, r.end),
			Start:  r.start,
		})
	}

	return segments
}

// detectSilences scans the signal in hop-sized windows and returns the
// maximal low-energy runs lasting at least opts.MinSilence.
func detectSilences(sig audio.Signal, hop int, opts SilenceOptions) []sampleRange {
	minSilence := audio.DurationToSamples(opts.MinSilence, sig.SampleRate)

	var silences []sampleRange
	runStart := -1

	for start := 0; start < sig.Len(); start += hop {
		end := start + hop
		if end > sig.Len() {
			end = sig.Len()
		}

		if audio.WindowRMSdB(sig.Samples[start:end]) < opts.ThresholdDB {
			if runStart < 0 {
				runStart = start
			}
			continue
		}

		if runStart >= 0 {
			if start-runStart >= minSilence {
				silences = append(silences, sampleRange{start: runStart, end: start})
			}
			runStart = -1
		}
	}

	if runStart >= 0 && sig.Len()-runStart >= minSilence {
		silences = append(silences, sampleRange{start: runStart, end: sig.Len()})
	}

	return silences
}

// invertRanges returns the complement of the given ordered ranges within
// [0, length).
func invertRanges(ranges []sampleRange, length int) []sampleRange {
	var out []sampleRange
	pos := 0

	for _, r := range ranges {
		if r.start > pos {
			out = append(out, sampleRange{start: pos, end: r.start})
		}
		pos = r.end
	}

	if pos < length {
		out = append(out, sampleRange{start: pos, end: length})
	}

	return out
}

// padRanges extends each speech range by keepSilence on both sides, clamped
// to the signal bounds. Where two ranges share a silence gap, padding stops
// at the gap midpoint so padded ranges stay disjoint.
func padRanges(speech, silences []sampleRange, sig audio.Signal, keepSilence time.Duration) []sampleRange {
	if len(speech) == 0 {
		return speech
	}

	keep := audio.DurationToSamples(keepSilence, sig.SampleRate)

	out := make([]sampleRange, len(speech))
	for i, r := range speech {
		start := r.start - keep
		if start < 0 {
			start = 0
		}
		if i > 0 {
			mid := (speech[i-1].end + r.start) / 2
			if start < mid {
				start = mid
			}
		}

		end := r.end + keep
		if end > sig.Len() {
			end = sig.Len()
		}
		if i < len(speech)-1 {
			mid := (r.end + speech[i+1].start) / 2
			if end > mid {
				end = mid
			}
		}

		out[i] = sampleRange{start: start, end: end}
	}

	return out
}
