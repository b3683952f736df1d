package analysis

import (
	"fmt"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Stage is a step of the analysis pipeline. Each stage is entered at most
// once per request.
type Stage string

const (
	StageStaged            Stage = "staged"
	StageUploaded          Stage = "uploaded"
	StageFeaturesExtracted Stage = "features_extracted"
	StageClassified        Stage = "classified"
	StagePersisted         Stage = "persisted"
)

// Stages in pipeline order.
var Stages = []Stage{StageStaged, StageUploaded, StageFeaturesExtracted, StageClassified, StagePersisted}

// StageError is the single error returned by an aborted pipeline. Stage is the
// transition that failed.
type StageError struct {
	Stage Stage
	Kind  media.Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s analysis failed at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
