package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/wav"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Audio features keys.
const (
	KeySpectralCentroid  = "spectral_centroid"
	KeySpectralBandwidth = "spectral_bandwidth"
	KeyZeroCrossingRate  = "zero_crossing_rate"
	KeyRMSEnergy         = "rms_energy"
	KeySampleRate        = "sample_rate"
	KeyMFCCsMean         = "mfccs_mean"
)

// Transcoder turns any audio container into a mono 16-bit PCM WAV.
type Transcoder interface {
	ToWAV(ctx context.Context, src, dst string) error
}

type AudioExtractor struct {
	Transcoder Transcoder
}

func (a AudioExtractor) Extract(ctx context.Context, path string) (media.FeatureVector, error) {
	samples, sr, err := a.load(ctx, path)
	if err != nil {
		return media.FeatureVector{}, err
	}
	if len(samples) == 0 || sr <= 0 {
		return media.FeatureVector{}, fmt.Errorf("%w: empty audio", media.ErrNoSignal)
	}
	return AudioFeatures(samples, sr), nil
}

// load returns mono samples in [-1, 1] at the native sample rate.
func (a AudioExtractor) load(ctx context.Context, path string) ([]float64, int, error) {
	samples, sr, err := decodeWAV(path)
	if err == nil {
		return samples, sr, nil
	}
	if !errors.Is(err, errNotWAV) {
		return nil, 0, err
	}
	if a.Transcoder == nil {
		return nil, 0, fmt.Errorf("%w: not a wav file", media.ErrUnreadableMedia)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "pcm-*.wav")
	if err != nil {
		return nil, 0, fmt.Errorf("audio: temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := a.Transcoder.ToWAV(ctx, path, tmpPath); err != nil {
		return nil, 0, err
	}
	samples, sr, err = decodeWAV(tmpPath)
	if errors.Is(err, errNotWAV) {
		return nil, 0, fmt.Errorf("%w: transcoder output unreadable", media.ErrUnreadableMedia)
	}
	return samples, sr, err
}

var errNotWAV = errors.New("not a pcm wav")

// WAVE_FORMAT_PCM; float and extensible headers go through the transcoder.
const wavFormatPCM = 1

// decodeWAV reads integer PCM WAVs natively and mixes them down to mono.
// Anything else yields errNotWAV.
func decodeWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", media.ErrUnreadableMedia, err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() || d.WavAudioFormat != wavFormatPCM {
		return nil, 0, errNotWAV
	}
	depth := int(d.BitDepth)
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, 0, errNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, 0, errNotWAV
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("%w: wav without format", media.ErrUnreadableMedia)
	}

	// 8-bit PCM is unsigned around 128
	offset := 0
	if depth == 8 {
		offset = 128
	}
	scale := math.Ldexp(1, depth-1)
	ch := buf.Format.NumChannels

	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var s float64
		for c := 0; c < ch; c++ {
			s += float64(buf.Data[i*ch+c]-offset) / scale
		}
		out[i] = s / float64(ch)
	}
	return out, buf.Format.SampleRate, nil
}

// AudioFeatures computes frame-averaged spectral statistics and MFCC means.
func AudioFeatures(y []float64, sr int) media.FeatureVector {
	spec := magnitudeSpectrogram(y)
	freqs := fftFrequencies(sr)

	centroids := make([]float64, len(spec))
	bandwidths := make([]float64, len(spec))
	for t, col := range spec {
		var total float64
		for _, v := range col {
			total += v
		}
		if total <= 0 {
			continue
		}
		var c float64
		for k, v := range col {
			c += freqs[k] * v / total
		}
		var bw float64
		for k, v := range col {
			d := freqs[k] - c
			bw += v / total * d * d
		}
		centroids[t] = c
		bandwidths[t] = math.Sqrt(bw)
	}

	fv := media.NewFeatureVector(media.KindAudio)
	fv.Scalars[KeySpectralCentroid] = mean(centroids)
	fv.Scalars[KeySpectralBandwidth] = mean(bandwidths)
	fv.Scalars[KeyZeroCrossingRate] = mean(zeroCrossingRates(y))
	fv.Scalars[KeyRMSEnergy] = mean(rmsFrames(y))
	fv.Scalars[KeySampleRate] = float64(sr)
	fv.Series = map[string][]float64{KeyMFCCsMean: mfccMeans(spec, sr)}
	return fv
}

func zeroCrossingRates(y []float64) []float64 {
	padded := padCenter(y, nFFT, true)
	for i, v := range padded {
		if math.Abs(v) <= zcThreshold {
			padded[i] = 0
		}
	}
	frames := frameCount(len(padded), nFFT, hopSize)
	out := make([]float64, frames)
	for t := 0; t < frames; t++ {
		off := t * hopSize
		crossings := 0
		for i := off + 1; i < off+nFFT; i++ {
			if math.Signbit(padded[i]) != math.Signbit(padded[i-1]) {
				crossings++
			}
		}
		out[t] = float64(crossings) / nFFT
	}
	return out
}

func rmsFrames(y []float64) []float64 {
	padded := padCenter(y, nFFT, false)
	frames := frameCount(len(padded), nFFT, hopSize)
	out := make([]float64, frames)
	for t := 0; t < frames; t++ {
		off := t * hopSize
		var p float64
		for i := off; i < off+nFFT; i++ {
			p += padded[i] * padded[i]
		}
		out[t] = math.Sqrt(p / nFFT)
	}
	return out
}

func mfccMeans(spec [][]float64, sr int) []float64 {
	fb := melFilterbank(sr)
	mel := make([][]float64, len(spec))
	for t, col := range spec {
		row := make([]float64, nMels)
		for m, filt := range fb {
			var s float64
			for k, w := range filt {
				if w != 0 {
					s += w * col[k] * col[k]
				}
			}
			row[m] = s
		}
		mel[t] = row
	}
	powerToDB(mel)

	sums := make([]float64, nMFCC)
	for _, row := range mel {
		for c, v := range dctOrtho(row, nMFCC) {
			sums[c] += v
		}
	}
	out := make([]float64, nMFCC)
	if len(mel) == 0 {
		return out
	}
	for c := range sums {
		out[c] = sums[c] / float64(len(mel))
	}
	return out
}
