package voice

import (
	"math"
	"sort"
)

const (
	minF0 = 60.0
	maxF0 = 400.0

	frameSeconds = 0.04
	hopSeconds   = 0.02
	// Frames quieter than this RMS are treated as silence.
	silenceRMS = 0.01
	// Minimum normalized autocorrelation for a frame to count as voiced.
	voicedThreshold = 0.5
)

// PitchStats summarizes voiced-frame fundamental frequency estimates.
type PitchStats struct {
	MedianHz     float64
	MeanHz       float64
	VoicedFrames int
	TotalFrames  int
}

// VoicedRatio returns the share of frames that carried a pitch estimate.
func (s PitchStats) VoicedRatio() float64 {
	if s.TotalFrames == 0 {
		return 0
	}
	return float64(s.VoicedFrames) / float64(s.TotalFrames)
}

// EstimatePitch runs a windowed autocorrelation F0 estimate over mono samples
// in [-1, 1].
func EstimatePitch(samples []float64, sampleRate int) PitchStats {
	var stats PitchStats
	if sampleRate <= 0 {
		return stats
	}
	frame := int(frameSeconds * float64(sampleRate))
	hop := int(hopSeconds * float64(sampleRate))
	minLag := int(float64(sampleRate) / maxF0)
	maxLag := int(float64(sampleRate) / minF0)
	if frame <= maxLag {
		frame = maxLag + 1
	}
	if hop < 1 {
		hop = 1
	}

	var estimates []float64
	for start := 0; start+frame <= len(samples); start += hop {
		stats.TotalFrames++
		window := samples[start : start+frame]
		if rms(window) < silenceRMS {
			continue
		}
		if f0, ok := frameF0(window, sampleRate, minLag, maxLag); ok {
			estimates = append(estimates, f0)
		}
	}
	stats.VoicedFrames = len(estimates)
	if len(estimates) == 0 {
		return stats
	}
	sum := 0.0
	for _, v := range estimates {
		sum += v
	}
	stats.MeanHz = sum / float64(len(estimates))
	sort.Float64s(estimates)
	mid := len(estimates) / 2
	if len(estimates)%2 == 0 {
		stats.MedianHz = (estimates[mid-1] + estimates[mid]) / 2
	} else {
		stats.MedianHz = estimates[mid]
	}
	return stats
}

func frameF0(window []float64, sampleRate, minLag, maxLag int) (float64, bool) {
	energy := 0.0
	for _, v := range window {
		energy += v * v
	}
	if energy == 0 {
		return 0, false
	}
	bestLag := 0
	best := 0.0
	for lag := minLag; lag <= maxLag && lag < len(window); lag++ {
		sum := 0.0
		for i := 0; i+lag < len(window); i++ {
			sum += window[i] * window[i+lag]
		}
		norm := sum / energy
		if norm > best {
			best = norm
			bestLag = lag
		}
	}
	if bestLag == 0 || best < voicedThreshold {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}

func rms(window []float64) float64 {
	if len(window) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range window {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(window)))
}

// band maps an upper pitch bound to a profile.
type band struct {
	below   float64
	profile Profile
}

// Male speakers fall under genderSplitHz. Bands are ordered low to high.
const genderSplitHz = 165.0

var (
	maleBands   = []band{{110, Fenrir}, {130, Charon}, {150, Orus}, {math.Inf(1), Puck}}
	femaleBands = []band{{190, Kore}, {210, Leda}, {230, Aoede}, {math.Inf(1), Zephyr}}
)

// ProfileForPitch maps a median F0 to a profile.
func ProfileForPitch(hz float64) Profile {
	bands := femaleBands
	if hz < genderSplitHz {
		bands = maleBands
	}
	for _, b := range bands {
		if hz < b.below {
			return b.profile
		}
	}
	return bands[len(bands)-1].profile
}
