package features

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Frame layout shared by every spectral feature.
const (
	nFFT    = 2048
	hopSize = 512
	nMels   = 128
	nMFCC   = 13

	amin  = 1e-10
	topDB = 80.0

	zcThreshold = 1e-10
)

// hann returns a periodic Hann window.
func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// padCenter pads y by half a frame on both sides, with zeros or with the
// edge samples.
func padCenter(y []float64, frame int, edge bool) []float64 {
	half := frame / 2
	out := make([]float64, len(y)+2*half)
	copy(out[half:], y)
	if edge && len(y) > 0 {
		for i := 0; i < half; i++ {
			out[i] = y[0]
			out[len(out)-1-i] = y[len(y)-1]
		}
	}
	return out
}

func frameCount(n, frame, hop int) int {
	if n < frame {
		return 0
	}
	return 1 + (n-frame)/hop
}

// magnitudeSpectrogram returns |STFT| as [frame][bin] with centered frames.
func magnitudeSpectrogram(y []float64) [][]float64 {
	padded := padCenter(y, nFFT, false)
	frames := frameCount(len(padded), nFFT, hopSize)
	win := hann(nFFT)
	bins := nFFT/2 + 1

	fft := fourier.NewFFT(nFFT)
	frame := make([]float64, nFFT)
	coeff := make([]complex128, bins)
	out := make([][]float64, frames)
	for t := 0; t < frames; t++ {
		off := t * hopSize
		for i := range frame {
			frame[i] = padded[off+i] * win[i]
		}
		coeff = fft.Coefficients(coeff, frame)
		row := make([]float64, bins)
		for k := range row {
			row[k] = cmplx.Abs(coeff[k])
		}
		out[t] = row
	}
	return out
}

func fftFrequencies(sr int) []float64 {
	bins := nFFT/2 + 1
	out := make([]float64, bins)
	for k := range out {
		out[k] = float64(k) * float64(sr) / float64(nFFT)
	}
	return out
}

// Slaney mel scale.
const (
	melFSP      = 200.0 / 3
	melMinLogHz = 1000.0
)

var (
	melMinLogMel = melMinLogHz / melFSP
	melLogStep   = math.Log(6.4) / 27.0
)

func hzToMel(f float64) float64 {
	if f >= melMinLogHz {
		return melMinLogMel + math.Log(f/melMinLogHz)/melLogStep
	}
	return f / melFSP
}

func melToHz(m float64) float64 {
	if m >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(m-melMinLogMel))
	}
	return melFSP * m
}

// melFilterbank builds area-normalized triangular filters as [mel][bin].
func melFilterbank(sr int) [][]float64 {
	freqs := fftFrequencies(sr)
	lo, hi := hzToMel(0), hzToMel(float64(sr)/2)

	edges := make([]float64, nMels+2)
	for i := range edges {
		m := lo + (hi-lo)*float64(i)/float64(nMels+1)
		edges[i] = melToHz(m)
	}

	fb := make([][]float64, nMels)
	for i := 0; i < nMels; i++ {
		row := make([]float64, len(freqs))
		lowerW := edges[i+1] - edges[i]
		upperW := edges[i+2] - edges[i+1]
		enorm := 2.0 / (edges[i+2] - edges[i])
		for k, f := range freqs {
			lower := (f - edges[i]) / lowerW
			upper := (edges[i+2] - f) / upperW
			w := math.Min(lower, upper)
			if w > 0 {
				row[k] = w * enorm
			}
		}
		fb[i] = row
	}
	return fb
}

// powerToDB converts in place, clipping at topDB below the global peak.
func powerToDB(s [][]float64) {
	peak := math.Inf(-1)
	for _, row := range s {
		for i, v := range row {
			db := 10 * math.Log10(math.Max(amin, v))
			row[i] = db
			if db > peak {
				peak = db
			}
		}
	}
	floor := peak - topDB
	for _, row := range s {
		for i, v := range row {
			if v < floor {
				row[i] = floor
			}
		}
	}
}

// dctOrtho returns the first k orthonormal DCT-II coefficients of x.
func dctOrtho(x []float64, k int) []float64 {
	n := float64(len(x))
	out := make([]float64, k)
	for c := 0; c < k; c++ {
		var sum float64
		for i, v := range x {
			sum += v * math.Cos(math.Pi*float64(c)*(2*float64(i)+1)/(2*n))
		}
		if c == 0 {
			out[c] = sum * math.Sqrt(1/n)
		} else {
			out[c] = sum * math.Sqrt(2/n)
		}
	}
	return out
}

// mean and variance treat an empty series as zero signal.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.PopVariance(xs, nil)
}
