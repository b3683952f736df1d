package features

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// MaxSampledFrames bounds how many frames a video contributes.
const MaxSampledFrames = 30

// Video features keys.
const (
	KeyMeanEdgeDensities  = "mean_edge_densities"
	KeyMeanNoiseLevels    = "mean_noise_levels"
	KeyMeanColorEntropies = "mean_color_entropies"
	KeySampledFrames      = "sampled_frames"
)

// FrameSampler decodes individual frames of a video container.
type FrameSampler interface {
	FrameCount(ctx context.Context, path string) (int, error)
	Frame(ctx context.Context, path string, index int) (image.Image, error)
}

type VideoExtractor struct {
	Frames    FrameSampler
	Workers   int
	MaxPixels int
}

func (v VideoExtractor) Extract(ctx context.Context, path string) (media.FeatureVector, error) {
	if v.Frames == nil {
		return media.FeatureVector{}, errors.New("video extractor: no frame sampler")
	}
	n, err := v.Frames.FrameCount(ctx, path)
	if err != nil {
		return media.FeatureVector{}, err
	}
	indices := SampleIndices(n, MaxSampledFrames)
	if len(indices) == 0 {
		return media.FeatureVector{}, fmt.Errorf("%w: video has no frames", media.ErrNoSignal)
	}

	results := make([]*FrameStats, len(indices))
	g, gctx := errgroup.WithContext(ctx)
	workers := v.Workers
	if workers <= 0 {
		workers = 4
	}
	g.SetLimit(workers)
	for slot, idx := range indices {
		slot, idx := slot, idx
		g.Go(func() error {
			img, err := v.Frames.Frame(gctx, path, idx)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				// every frame of a stream shares its size
				if errors.Is(err, media.ErrTooLarge) {
					return err
				}
				log.Debug().Err(err).Str("file", path).Int("frame", idx).Msg("skip unreadable frame")
				return nil
			}
			b := img.Bounds()
			if err := checkPixels(b.Dx(), b.Dy(), v.MaxPixels); err != nil {
				return err
			}
			st, err := ComputeFrameStats(img)
			if err != nil {
				return nil
			}
			results[slot] = &st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return media.FeatureVector{}, err
	}

	var edges, noise, entropy []float64
	for _, r := range results {
		if r == nil {
			continue
		}
		edges = append(edges, r.EdgeDensity)
		noise = append(noise, r.NoiseLevel)
		entropy = append(entropy, r.ColorEntropy)
	}
	if len(edges) == 0 {
		return media.FeatureVector{}, fmt.Errorf("%w: no decodable frames", media.ErrNoSignal)
	}

	fv := media.NewFeatureVector(media.KindVideo)
	fv.Scalars[KeyMeanEdgeDensities] = mean(edges)
	fv.Scalars[KeyMeanNoiseLevels] = mean(noise)
	fv.Scalars[KeyMeanColorEntropies] = mean(entropy)
	fv.Scalars[KeySampledFrames] = float64(len(edges))
	return fv, nil
}

// SampleIndices returns min(n, limit) evenly spaced frame indices over
// [0, n-1], truncated to integers.
func SampleIndices(n, limit int) []int {
	if n <= 0 || limit <= 0 {
		return nil
	}
	k := n
	if limit < k {
		k = limit
	}
	out := make([]int, k)
	if k == 1 {
		return out
	}
	step := float64(n-1) / float64(k-1)
	for i := 0; i < k-1; i++ {
		out[i] = int(float64(i) * step)
	}
	out[k-1] = n - 1
	return out
}
