package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Runner shells out to ffmpeg/ffprobe for container decoding.
type Runner struct {
	FFmpeg  string
	FFprobe string
	// Timeout per invocation, 0 means none.
	Timeout time.Duration
	// MaxPixels rejects decoded frames above this size, 0 means no limit.
	MaxPixels int
}

func NewRunner(ffmpegPath, ffprobePath string, timeout time.Duration) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{FFmpeg: ffmpegPath, FFprobe: ffprobePath, Timeout: timeout}
}

// FrameCount returns the number of packets in the first video stream, which
// equals the frame count for every codec we accept.
func (r *Runner) FrameCount(ctx context.Context, path string) (int, error) {
	out, err := r.run(ctx, r.FFprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "csv=p=0",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: ffprobe: %v", media.ErrUnreadableMedia, err)
	}
	s := strings.TrimSpace(strings.Split(strings.TrimSpace(string(out)), "\n")[0])
	s = strings.TrimSuffix(s, ",")
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("%w: no video stream", media.ErrUnreadableMedia)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: frame count %q", media.ErrUnreadableMedia, s)
	}
	return n, nil
}

// Frame decodes a single frame by index.
func (r *Runner) Frame(ctx context.Context, path string, index int) (image.Image, error) {
	out, err := r.run(ctx, r.FFmpeg,
		"-v", "error",
		"-i", path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, index),
		"-vsync", "0",
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("frame %d: empty output", index)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}
	if r.MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(r.MaxPixels) {
		return nil, fmt.Errorf("%w: frame %dx%d exceeds %d pixels", media.ErrTooLarge, cfg.Width, cfg.Height, r.MaxPixels)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w", index, err)
	}
	return img, nil
}

// ToWAV transcodes src into a mono 16-bit PCM WAV at the source sample rate.
func (r *Runner) ToWAV(ctx context.Context, src, dst string) error {
	if _, err := r.run(ctx, r.FFmpeg,
		"-y", "-v", "error",
		"-i", src,
		"-vn",
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	); err != nil {
		return fmt.Errorf("%w: transcode: %v", media.ErrUnreadableMedia, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, bin string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("%s exit %d: %s", bin, ee.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run %s: %w", bin, err)
	}
	return stdout.Bytes(), nil
}
