package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bryanwahyu/aidentify/internal/application"
	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	domain "github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/failures"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/telemetry"
)

// ErrInvalidCommand marks requests rejected before any stage runs.
var ErrInvalidCommand = errors.New("invalid analysis request")

// Mode selects what a successful classification is persisted as.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeResult Mode = "result"
)

// Recorder receives pipeline measurements. Nil disables them.
type Recorder interface {
	ObserveStage(kind media.Kind, stage domain.Stage, d time.Duration, err error)
	ObserveVerdict(kind media.Kind, v ai.Verdict)
	ObserveOutcome(kind media.Kind, v *ai.Verdict, err error)
}

// Service runs the media analysis pipeline. One call to Analyze is one
// request; the service holds no per-request state and is safe for concurrent use.
type Service struct {
	Stager     media.Stager
	Assets     media.AssetStore
	Extractors media.Extractors
	Oracle     ai.Oracle
	Chats      chats.Repository
	Results    domain.Repository
	Failures   failures.Repository
	Recorder   Recorder
	Clock      application.Clock

	Mode Mode
	// DropDegraded fails the request with ai.ErrDegradedVerdict instead of
	// persisting an "Error" verdict.
	DropDegraded bool
	KeyPrefix    string
}

//
// ==== USE CASES ====
//

// AnalyzeCommand is one uploaded file to classify.
type AnalyzeCommand struct {
	Email    string
	Kind     media.Kind
	MIMEType string
	ChatID   string
	FileName string
	Body     io.Reader
}

// AnalyzeResult holds what was persisted. Chat mode fills ChatID and the two
// messages, result mode fills Result.
type AnalyzeResult struct {
	ChatID      chats.ChatID        `json:"chat_id,omitempty"`
	UserMessage *chats.Message      `json:"user_message,omitempty"`
	AIMessage   *chats.Message      `json:"ai_message,omitempty"`
	Result      *domain.Result      `json:"-"`
	Verdict     ai.Verdict          `json:"-"`
	Features    media.FeatureVector `json:"-"`
}

// IsEmptyChatID reports whether the client asked for a new chat.
func IsEmptyChatID(id string) bool {
	switch strings.ToLower(strings.TrimSpace(id)) {
	case "", "null", "undefined", "none":
		return true
	}
	return false
}

// Analyze runs Staged → Uploaded → FeaturesExtracted → Classified → Persisted.
// The staged file is released on every exit. Any abort is a *domain.StageError.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (res AnalyzeResult, err error) {
	if strings.TrimSpace(cmd.Email) == "" {
		return res, fmt.Errorf("%w: email is required", ErrInvalidCommand)
	}
	if !cmd.Kind.Valid() {
		return res, fmt.Errorf("%w: unknown media kind %q", ErrInvalidCommand, cmd.Kind)
	}
	if cmd.Body == nil {
		return res, fmt.Errorf("%w: file is required", ErrInvalidCommand)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.String("media.kind", cmd.Kind.String()),
		attribute.String("analysis.mode", string(s.mode())),
	))
	defer span.End()

	logger := log.With().
		Str("email", cmd.Email).
		Str("kind", cmd.Kind.String()).
		Str("file", cmd.FileName).
		Logger()

	var verdict *ai.Verdict
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if s.Recorder != nil {
			s.Recorder.ObserveOutcome(cmd.Kind, verdict, err)
		}
	}()

	// Staged
	var asset *media.StagedAsset
	err = s.run(ctx, cmd.Kind, domain.StageStaged, func(ctx context.Context) error {
		var serr error
		asset, serr = s.Stager.Stage(ctx, media.StageRequest{
			Kind:         cmd.Kind,
			FileName:     cmd.FileName,
			DeclaredMIME: cmd.MIMEType,
			Body:         cmd.Body,
		})
		return serr
	})
	if err != nil {
		return res, s.abort(ctx, logger, cmd, domain.StageStaged, "", err)
	}
	defer func() {
		if rerr := s.Stager.Release(asset); rerr != nil {
			logger.Warn().Err(rerr).Str("path", asset.Path).Msg("staged file leaked")
		}
	}()

	// Uploaded
	var url string
	key := media.ObjectKey(s.KeyPrefix, cmd.Kind, cmd.FileName)
	err = s.run(ctx, cmd.Kind, domain.StageUploaded, func(ctx context.Context) error {
		var uerr error
		url, uerr = s.Assets.Upload(ctx, asset.Path, key, asset.MIMEType())
		if uerr != nil && !errors.Is(uerr, media.ErrStorage) {
			uerr = fmt.Errorf("%w: %w", media.ErrStorage, uerr)
		}
		return uerr
	})
	if err != nil {
		return res, s.abort(ctx, logger, cmd, domain.StageUploaded, "", err)
	}
	logger = logger.With().Str("document_url", url).Logger()

	// FeaturesExtracted
	var features media.FeatureVector
	err = s.run(ctx, cmd.Kind, domain.StageFeaturesExtracted, func(ctx context.Context) error {
		var ferr error
		features, ferr = s.Extractors.Extract(ctx, cmd.Kind, asset.Path)
		return ferr
	})
	if err != nil {
		// the uploaded object stays orphaned
		return res, s.abort(ctx, logger, cmd, domain.StageFeaturesExtracted, url, err)
	}

	// Classified
	var v ai.Verdict
	err = s.run(ctx, cmd.Kind, domain.StageClassified, func(ctx context.Context) error {
		var cerr error
		v, cerr = s.Oracle.Classify(ctx, asset, features, asset.MIMEType())
		if cerr != nil {
			return cerr
		}
		if s.Recorder != nil {
			s.Recorder.ObserveVerdict(cmd.Kind, v)
		}
		if !v.Authoritative() && s.DropDegraded {
			return fmt.Errorf("%w: %s", ai.ErrDegradedVerdict, v.Reason)
		}
		return nil
	})
	if err != nil {
		return res, s.abort(ctx, logger, cmd, domain.StageClassified, url, err)
	}
	verdict = &v
	if !v.Authoritative() {
		logger.Warn().Str("reason", v.Reason).Msg("degraded verdict")
	}

	// Persisted
	err = s.run(ctx, cmd.Kind, domain.StagePersisted, func(ctx context.Context) error {
		var perr error
		res, perr = s.persist(ctx, cmd, url, v)
		return perr
	})
	if err != nil {
		return AnalyzeResult{}, s.abort(ctx, logger, cmd, domain.StagePersisted, url, err)
	}
	res.Verdict = v
	res.Features = features

	logger.Info().
		Str("chat_id", string(res.ChatID)).
		Str("label", string(v.Label)).
		Float64("confidence", v.Confidence).
		Msg("analysis completed")
	return res, nil
}

func (s *Service) persist(ctx context.Context, cmd AnalyzeCommand, url string, v ai.Verdict) (AnalyzeResult, error) {
	now := s.now()

	if s.mode() == ModeResult {
		r := &domain.Result{
			ID:           domain.ResultID(uuid.New().String()),
			UserEmail:    cmd.Email,
			DocumentType: cmd.Kind,
			DocumentURL:  url,
			Label:        v.Label,
			Confidence:   v.Confidence,
			Reason:       v.Reason,
			CreatedAt:    now,
		}
		if err := s.Results.Insert(ctx, r); err != nil {
			return AnalyzeResult{}, err
		}
		return AnalyzeResult{Result: r}, nil
	}

	confidence := v.Confidence
	user := chats.Message{
		ID:        uuid.New().String(),
		Role:      chats.RoleUser,
		Type:      cmd.Kind,
		Content:   url,
		CreatedAt: now,
	}
	assistant := chats.Message{
		ID:         uuid.New().String(),
		Role:       chats.RoleAssistant,
		Type:       cmd.Kind,
		Content:    v.Reason,
		Label:      v.Label,
		Confidence: &confidence,
		Reason:     v.Reason,
		CreatedAt:  now,
	}

	var chatID chats.ChatID
	if !IsEmptyChatID(cmd.ChatID) {
		chatID = chats.ChatID(strings.TrimSpace(cmd.ChatID))
	}
	id, err := s.Chats.Append(ctx, chats.AppendRequest{
		Owner:     cmd.Email,
		ChatID:    chatID,
		Title:     chatTitle(cmd.Kind),
		User:      user,
		Assistant: assistant,
	})
	if err != nil {
		return AnalyzeResult{}, err
	}
	return AnalyzeResult{ChatID: id, UserMessage: &user, AIMessage: &assistant}, nil
}

// run executes one stage inside its own span and records its duration.
func (s *Service) run(ctx context.Context, kind media.Kind, stage domain.Stage, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "analysis."+string(stage),
		trace.WithAttributes(attribute.String("media.kind", kind.String())))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if s.Recorder != nil {
		s.Recorder.ObserveStage(kind, stage, time.Since(start), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// abort logs the failure, records it best-effort and returns the StageError.
func (s *Service) abort(ctx context.Context, logger zerolog.Logger, cmd AnalyzeCommand, stage domain.Stage, url string, err error) error {
	se := &domain.StageError{Stage: stage, Kind: cmd.Kind, Err: err}
	logger.Error().Err(err).Str("stage", string(stage)).Str("chat_id", cmd.ChatID).Msg("analysis aborted")
	s.recordFailure(ctx, logger, cmd, stage, url, err)
	return se
}

func (s *Service) recordFailure(ctx context.Context, logger zerolog.Logger, cmd AnalyzeCommand, stage domain.Stage, url string, cause error) {
	if s.Failures == nil {
		return
	}
	details, _ := json.Marshal(map[string]string{
		"file":         cmd.FileName,
		"mime_type":    cmd.MIMEType,
		"chat_id":      cmd.ChatID,
		"document_url": url,
	})
	f := &failures.Failure{
		ID:          uuid.New().String(),
		UserEmail:   cmd.Email,
		Kind:        cmd.Kind.String(),
		Stage:       string(stage),
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.now(),
	}

	// the request context may already be canceled
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Failures.Save(wctx, f); err != nil {
		logger.Warn().Err(err).Msg("failed to record pipeline failure")
	}
}

func (s *Service) mode() Mode {
	if s.Mode == "" {
		return ModeChat
	}
	return s.Mode
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func chatTitle(kind media.Kind) string {
	switch kind {
	case media.KindImage:
		return "Image analysis"
	case media.KindVideo:
		return "Video analysis"
	case media.KindAudio:
		return "Audio analysis"
	}
	return "Analysis"
}
