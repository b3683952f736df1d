package ai

import (
	"context"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Oracle classifies a staged asset. Malformed model output is reported as a
// degraded Verdict, not an error.
type Oracle interface {
	Classify(ctx context.Context, asset *media.StagedAsset, features media.FeatureVector, mime string) (Verdict, error)
}
