package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/infra/ai/prompt"
	"github.com/bryanwahyu/aidentify/internal/infra/features"
)

const maxTokens = 2048

const (
	defaultModel          = "gpt-4o"
	defaultPurpose        = "user_data"
	defaultPollInterval   = 2 * time.Second
	defaultPollMax        = 10 * time.Second
	defaultReadyTimeout   = 5 * time.Minute
	defaultCleanupTimeout = 15 * time.Second
	defaultInlineMax      = 20 << 20
	defaultInlineFrames   = 8
	frameJPEGQuality      = 80
)

// FrameSource decodes individual video frames so they can be attached to
// the completion request as images.
type FrameSource interface {
	FrameCount(ctx context.Context, path string) (int, error)
	Frame(ctx context.Context, path string, index int) (image.Image, error)
}

// Options tunes the oracle. Zero values fall back to defaults.
type Options struct {
	BaseURL        string
	Model          string
	FilePurpose    string
	PollInterval   time.Duration
	PollMaxWait    time.Duration
	ReadyTimeout   time.Duration
	CleanupTimeout time.Duration
	// InlineImageMaxBytes caps images sent inline as data URLs; negative disables.
	InlineImageMaxBytes int64
	// Frames supplies video frames; nil sends video as features only.
	Frames FrameSource
	// InlineFrames caps attached video frames; negative disables.
	InlineFrames int
	HTTPClient   *http.Client
}

// Client implements ai.Oracle against an OpenAI-compatible endpoint.
type Client struct {
	*openai.Client
	Model string
	opt   Options
}

func NewClient(apiKey string, opt Options) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if opt.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	}
	if opt.HTTPClient != nil {
		cfg.HTTPClient = opt.HTTPClient
	}
	if opt.Model == "" {
		opt.Model = defaultModel
	}
	if opt.FilePurpose == "" {
		opt.FilePurpose = defaultPurpose
	}
	if opt.PollInterval <= 0 {
		opt.PollInterval = defaultPollInterval
	}
	if opt.PollMaxWait <= 0 {
		opt.PollMaxWait = defaultPollMax
	}
	if opt.ReadyTimeout <= 0 {
		opt.ReadyTimeout = defaultReadyTimeout
	}
	if opt.CleanupTimeout <= 0 {
		opt.CleanupTimeout = defaultCleanupTimeout
	}
	if opt.InlineImageMaxBytes == 0 {
		opt.InlineImageMaxBytes = defaultInlineMax
	}
	if opt.InlineFrames == 0 {
		opt.InlineFrames = defaultInlineFrames
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: opt.Model, opt: opt}
}

// Classify uploads the asset, waits for it when needed, asks for a verdict
// and always deletes the remote file afterwards.
func (c *Client) Classify(ctx context.Context, asset *media.StagedAsset, fv media.FeatureVector, mime string) (ai.Verdict, error) {
	if asset == nil {
		return ai.Verdict{}, errors.New("classify: nil asset")
	}
	file, err := c.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(asset.Path),
		FilePath: asset.Path,
		Purpose:  c.opt.FilePurpose,
	})
	if err != nil {
		return ai.Verdict{}, wrapErr("upload file", err)
	}
	defer c.cleanup(ctx, file.ID)

	if asset.Kind.NeedsRemoteProcessing() {
		if err := c.waitReady(ctx, file.ID); err != nil {
			return ai.Verdict{}, err
		}
	}

	req, err := c.buildRequest(ctx, asset, fv, mime, file.ID)
	if err != nil {
		return ai.Verdict{}, wrapErr("build request", err)
	}
	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return ai.Verdict{}, wrapErr("create chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return ai.Degraded("empty response"), nil
	}
	return prompt.ParseVerdict(resp.Choices[0].Message.Content), nil
}

var errNotReady = errors.New("remote file not ready")

func (c *Client) waitReady(ctx context.Context, fileID string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opt.PollInterval
	b.Multiplier = 1.5
	b.RandomizationFactor = 0
	b.MaxInterval = c.opt.PollMaxWait
	b.MaxElapsedTime = c.opt.ReadyTimeout

	op := func() error {
		f, err := c.GetFile(ctx, fileID)
		if err != nil {
			if isQuota(err) {
				return backoff.Permanent(wrapErr("get file", err))
			}
			return wrapErr("get file", err)
		}
		switch strings.ToLower(f.Status) {
		case "", "processed", "active":
			return nil
		case "error", "failed":
			return backoff.Permanent(fmt.Errorf("%w: remote processing failed: %s", ai.ErrOracleUnavailable, f.StatusDetails))
		}
		return errNotReady
	}

	err := backoff.Retry(op, backoff.WithContext(b, ctx))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotReady):
		return fmt.Errorf("%w: file %s not ready after %s", ai.ErrOracleTimeout, fileID, c.opt.ReadyTimeout)
	case errors.Is(err, ai.ErrOracleUnavailable):
		return err
	}
	return wrapErr("wait for file", err)
}

func (c *Client) buildRequest(ctx context.Context, asset *media.StagedAsset, fv media.FeatureVector, mime, fileID string) (openai.ChatCompletionRequest, error) {
	model := c.Model
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt.GetUserPrompt(asset.Kind, fv.Summary(), fileID) + "\nMIME type: " + mime,
	}}
	if asset.Kind == media.KindVideo {
		frames, err := c.videoFrames(ctx, asset.Path)
		if err != nil {
			return openai.ChatCompletionRequest{}, err
		}
		parts = append(parts, frames...)
	}
	if asset.Kind == media.KindImage && c.opt.InlineImageMaxBytes > 0 && asset.Size <= c.opt.InlineImageMaxBytes {
		data, err := os.ReadFile(asset.Path)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("read staged image: %w", err)
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens instead of MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req, nil
}

// videoFrames samples up to InlineFrames evenly spaced frames as JPEG data
// URLs. Frames that fail to decode are skipped.
func (c *Client) videoFrames(ctx context.Context, path string) ([]openai.ChatMessagePart, error) {
	if c.opt.Frames == nil || c.opt.InlineFrames < 0 {
		return nil, nil
	}
	n, err := c.opt.Frames.FrameCount(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("file", path).Msg("video frames not attached")
		return nil, nil
	}

	var parts []openai.ChatMessagePart
	var buf bytes.Buffer
	for _, idx := range features.SampleIndices(n, c.opt.InlineFrames) {
		img, err := c.opt.Frames.Frame(ctx, path, idx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Debug().Err(err).Str("file", path).Int("frame", idx).Msg("frame not attached")
			continue
		}
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: frameJPEGQuality}); err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", idx, err)
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
				Detail: openai.ImageURLDetailLow,
			},
		})
	}
	if len(parts) == 0 {
		log.Warn().Str("file", path).Msg("no video frames attached to classification request")
	}
	return parts, nil
}

// cleanup runs detached from request cancellation.
func (c *Client) cleanup(ctx context.Context, fileID string) {
	if fileID == "" {
		return
	}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opt.CleanupTimeout)
	defer cancel()
	if err := c.DeleteFile(cctx, fileID); err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Msg("failed to delete remote file")
		return
	}
	log.Debug().Str("file_id", fileID).Msg("remote file deleted")
}

func isQuota(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	return errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests
}

// wrapErr tags every failure as ErrOracleUnavailable; context errors stay
// inspectable underneath.
func wrapErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", ai.ErrOracleUnavailable, op, err)
	}
	if isQuota(err) {
		return fmt.Errorf("%w: %w: %s: %v", ai.ErrOracleUnavailable, ai.ErrQuotaExceeded, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ai.ErrOracleUnavailable, op, err)
}
