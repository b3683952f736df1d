package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

// Local stages uploads as uniquely named files under Dir.
type Local struct {
	Dir      string
	MaxBytes int64
}

// NewLocal pastikan direktori staging ada
func NewLocal(dir string, maxBytes int64) (*Local, error) {
	if dir == "" {
		dir = filepath.Join(".", "temp")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Local{Dir: dir, MaxBytes: maxBytes}, nil
}

func (l *Local) Stage(ctx context.Context, req media.StageRequest) (*media.StagedAsset, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: kind %q", media.ErrUnsupportedMedia, req.Kind)
	}
	if req.Body == nil {
		return nil, errors.New("staging: empty body")
	}

	path := filepath.Join(l.Dir, uuid.New().String()+extension(req.FileName))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("staging: create file: %w", err)
	}

	n, err := copyLimited(ctx, f, req.Body, l.MaxBytes)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	sniffed, err := mimetype.DetectFile(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("staging: sniff: %w", err)
	}

	asset := &media.StagedAsset{
		Path:         path,
		FileName:     req.FileName,
		Kind:         req.Kind,
		DeclaredMIME: strings.TrimSpace(req.DeclaredMIME),
		SniffedMIME:  sniffed.String(),
		Size:         n,
	}
	if !req.Kind.MatchesMIME(asset.MIMEType()) {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %s is not %s", media.ErrUnsupportedMedia, asset.MIMEType(), req.Kind)
	}
	return asset, nil
}

// Release hapus file staging. Missing file dianggap sukses.
func (l *Local) Release(asset *media.StagedAsset) error {
	if asset == nil || asset.Path == "" {
		return nil
	}
	if err := os.Remove(asset.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("staging: release %s: %w", asset.Path, err)
	}
	return nil
}

func copyLimited(ctx context.Context, dst io.Writer, src io.Reader, max int64) (int64, error) {
	r := &ctxReader{ctx: ctx, r: src}
	if max <= 0 {
		n, err := io.Copy(dst, r)
		if err != nil {
			return n, fmt.Errorf("staging: copy: %w", err)
		}
		return n, nil
	}
	n, err := io.Copy(dst, io.LimitReader(r, max+1))
	if err != nil {
		return n, fmt.Errorf("staging: copy: %w", err)
	}
	if n > max {
		return n, fmt.Errorf("%w: limit is %d bytes", media.ErrTooLarge, max)
	}
	return n, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		return ""
	}
	return ext
}
