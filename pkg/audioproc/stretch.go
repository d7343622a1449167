package audioproc

import "math"

// SemitoneShift returns the pitch correction, in semitones, that compensates
// for playing audio at the given speed rate. Slowing to half speed drops
// pitch by an octave, so the correction is -12*log2(rate): at rate 0.5 the
// result is +12, restoring the original pitch. Rates <= 0 return 0.
func SemitoneShift(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return -12 * math.Log2(rate)
}

// Resample converts samples from one rate to another by linear
// interpolation. Returns the input unchanged when the rates already match or
// either rate is invalid.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate <= 0 || toRate <= 0 || fromRate == toRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}
	out := make([]int16, outLen)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(j)
		a, b := float64(samples[j]), float64(samples[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}

// Stretch changes the play time of samples by factor without changing pitch,
// using windowed overlap-add. factor 2.0 doubles the duration, 0.5 halves
// it. Factors <= 0 or == 1 return the input unchanged.
//
// This is the SOLA-style stretch used for slowed word playback; quality is
// fine for speech, not for music.
func Stretch(samples []int16, sampleRate int, factor float64) []int16 {
	if factor <= 0 || factor == 1 || len(samples) == 0 || sampleRate <= 0 {
		return samples
	}

	// 50ms analysis window with 50% overlap.
	window := sampleRate / 20
	if window < 64 {
		window = 64
	}
	if window > len(samples) {
		// Too short to window; nearest-sample stretch is inaudible at these
		// lengths.
		return Resample(samples, int(float64(sampleRate)*factor), sampleRate)
	}
	hopIn := window / 2
	hopOut := int(float64(hopIn) * factor)
	if hopOut < 1 {
		hopOut = 1
	}

	outLen := int(float64(len(samples))*factor) + window
	acc := make([]float64, outLen)
	norm := make([]float64, outLen)

	for inPos, outPos := 0, 0; inPos+window <= len(samples); inPos, outPos = inPos+hopIn, outPos+hopOut {
		for i := 0; i < window; i++ {
			// Hann window keeps the overlapped seams smooth.
			w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(window-1)))
			o := outPos + i
			if o >= outLen {
				break
			}
			acc[o] += float64(samples[inPos+i]) * w
			norm[o] += w
		}
	}

	target := int(float64(len(samples)) * factor)
	out := make([]int16, 0, target)
	for i := 0; i < target && i < outLen; i++ {
		v := acc[i]
		if norm[i] > 1e-6 {
			v /= norm[i]
		}
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		out = append(out, int16(v))
	}
	return out
}

// StretchPitchCorrected slows (or speeds) playback to rate while keeping the
// perceived pitch. rate 0.7 yields audio that takes 1/0.7 times as long. The
// semitone correction implied by the rate is folded into the stretch, so the
// caller only picks a speed.
func StretchPitchCorrected(samples []int16, sampleRate int, rate float64) []int16 {
	if rate <= 0 || rate == 1 {
		return samples
	}
	return Stretch(samples, sampleRate, 1/rate)
}
