package staging_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/infra/staging"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func dirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	return len(entries)
}

func TestStageAndRelease(t *testing.T) {
	dir := t.TempDir()
	st, err := staging.NewLocal(dir, 1<<20)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	data := pngBytes(t)

	asset, err := st.Stage(context.Background(), media.StageRequest{
		Kind:     media.KindImage,
		FileName: "Photo.PNG",
		Body:     bytes.NewReader(data),
	})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if asset.Size != int64(len(data)) {
		t.Fatalf("size: want=%d got=%d", len(data), asset.Size)
	}
	if asset.SniffedMIME != "image/png" {
		t.Fatalf("sniffed: want=%q got=%q", "image/png", asset.SniffedMIME)
	}
	if asset.MIMEType() != "image/png" {
		t.Fatalf("effective mime: got=%q", asset.MIMEType())
	}
	if filepath.Ext(asset.Path) != ".png" || filepath.Dir(asset.Path) != dir {
		t.Fatalf("unexpected path %q", asset.Path)
	}

	if err := st.Release(asset); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(asset.Path); !os.IsNotExist(err) {
		t.Fatalf("staged file still present: %v", err)
	}
	// second release is a no-op
	if err := st.Release(asset); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestStageTooLargeLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	st, _ := staging.NewLocal(dir, 8)

	_, err := st.Stage(context.Background(), media.StageRequest{
		Kind:     media.KindAudio,
		FileName: "a.wav",
		Body:     strings.NewReader(strings.Repeat("x", 64)),
	})
	if !errors.Is(err, media.ErrTooLarge) {
		t.Fatalf("want ErrTooLarge got %v", err)
	}
	if n := dirEntries(t, dir); n != 0 {
		t.Fatalf("want empty dir got %d entries", n)
	}
}

func TestStageRejectsWrongKind(t *testing.T) {
	dir := t.TempDir()
	st, _ := staging.NewLocal(dir, 0)

	_, err := st.Stage(context.Background(), media.StageRequest{
		Kind:     media.KindVideo,
		FileName: "photo.png",
		Body:     bytes.NewReader(pngBytes(t)),
	})
	if !errors.Is(err, media.ErrUnsupportedMedia) {
		t.Fatalf("want ErrUnsupportedMedia got %v", err)
	}
	if n := dirEntries(t, dir); n != 0 {
		t.Fatalf("want empty dir got %d entries", n)
	}
}

func TestStageDeclaredMimeWins(t *testing.T) {
	st, _ := staging.NewLocal(t.TempDir(), 0)
	asset, err := st.Stage(context.Background(), media.StageRequest{
		Kind:         media.KindAudio,
		FileName:     "clip.mp3",
		DeclaredMIME: "audio/mpeg",
		Body:         strings.NewReader("not really mp3"),
	})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	defer st.Release(asset)
	if asset.MIMEType() != "audio/mpeg" {
		t.Fatalf("mime: want=%q got=%q", "audio/mpeg", asset.MIMEType())
	}
}

func TestStageCanceledContext(t *testing.T) {
	dir := t.TempDir()
	st, _ := staging.NewLocal(dir, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := st.Stage(ctx, media.StageRequest{
		Kind: media.KindImage, FileName: "x.png", Body: bytes.NewReader(pngBytes(t)),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled got %v", err)
	}
	if n := dirEntries(t, dir); n != 0 {
		t.Fatalf("want empty dir got %d entries", n)
	}
}
