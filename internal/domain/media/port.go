package media

import (
	"context"
	"io"
)

// StageRequest describes an upload to materialize locally.
type StageRequest struct {
	Kind         Kind
	FileName     string
	DeclaredMIME string
	Body         io.Reader
}

// Stager port (local scoped files). Release must be called exactly once for
// every successful Stage.
type Stager interface {
	Stage(ctx context.Context, req StageRequest) (*StagedAsset, error)
	Release(asset *StagedAsset) error
}

// AssetStore port (durable object storage).
type AssetStore interface {
	Upload(ctx context.Context, localPath, key, contentType string) (string, error)
}

// Extractor computes features for one kind from a local file.
type Extractor interface {
	Extract(ctx context.Context, path string) (FeatureVector, error)
}

// Extractors dispatches to the extractor registered for a kind.
type Extractors interface {
	Extract(ctx context.Context, kind Kind, path string) (FeatureVector, error)
}
