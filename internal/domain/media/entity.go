package media

import (
	"encoding/json"
	"sort"
)

// StagedAsset is an uploaded file materialized on local disk for the
// duration of one request.
type StagedAsset struct {
	Path         string
	FileName     string
	Kind         Kind
	DeclaredMIME string
	SniffedMIME  string
	Size         int64
}

// MIMEType returns the declared type unless it is missing or generic.
func (a *StagedAsset) MIMEType() string {
	switch a.DeclaredMIME {
	case "", "application/octet-stream":
		return a.SniffedMIME
	}
	return a.DeclaredMIME
}

// FeatureVector holds deterministic signal statistics for one asset.
// Treat it as read-only once returned by an extractor.
type FeatureVector struct {
	Kind    Kind                 `json:"kind"`
	Scalars map[string]float64   `json:"scalars"`
	Series  map[string][]float64 `json:"series,omitempty"`
}

func NewFeatureVector(kind Kind) FeatureVector {
	return FeatureVector{Kind: kind, Scalars: map[string]float64{}}
}

func (f FeatureVector) Scalar(name string) (float64, bool) {
	v, ok := f.Scalars[name]
	return v, ok
}

// Names returns every feature name, sorted.
func (f FeatureVector) Names() []string {
	out := make([]string, 0, len(f.Scalars)+len(f.Series))
	for k := range f.Scalars {
		out = append(out, k)
	}
	for k := range f.Series {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Summary renders the features as a flat JSON object with sorted keys.
func (f FeatureVector) Summary() string {
	flat := make(map[string]any, len(f.Scalars)+len(f.Series))
	for k, v := range f.Scalars {
		flat[k] = v
	}
	for k, v := range f.Series {
		flat[k] = v
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return "{}"
	}
	return string(b)
}
