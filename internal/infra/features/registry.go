package features

import (
	"context"
	"fmt"
	"strings"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Registry maps every media kind to its extractor.
type Registry struct {
	byKind map[media.Kind]media.Extractor
}

// NewRegistry fails unless every kind in media.AllKinds has an extractor.
func NewRegistry(extractors map[media.Kind]media.Extractor) (*Registry, error) {
	var missing []string
	for _, k := range media.AllKinds {
		if extractors[k] == nil {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("features: no extractor for %s", strings.Join(missing, ", "))
	}
	m := make(map[media.Kind]media.Extractor, len(extractors))
	for k, e := range extractors {
		m[k] = e
	}
	return &Registry{byKind: m}, nil
}

// NewDefaultRegistry wires the built-in extractors. maxPixels bounds every
// decoded image or video frame; 0 means DefaultMaxPixels.
func NewDefaultRegistry(frames FrameSampler, transcoder Transcoder, workers, maxPixels int) (*Registry, error) {
	if maxPixels == 0 {
		maxPixels = DefaultMaxPixels
	}
	return NewRegistry(map[media.Kind]media.Extractor{
		media.KindImage: ImageExtractor{MaxPixels: maxPixels},
		media.KindVideo: VideoExtractor{Frames: frames, Workers: workers, MaxPixels: maxPixels},
		media.KindAudio: AudioExtractor{Transcoder: transcoder},
	})
}

func (r *Registry) Extract(ctx context.Context, kind media.Kind, path string) (media.FeatureVector, error) {
	e, ok := r.byKind[kind]
	if !ok {
		return media.FeatureVector{}, fmt.Errorf("%w: kind %q", media.ErrUnsupportedMedia, kind)
	}
	return e.Extract(ctx, path)
}
