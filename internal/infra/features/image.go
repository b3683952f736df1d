package features

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"sort"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

const (
	cannyLow  = 100
	cannyHigh = 200
)

// Image features keys.
const (
	KeyEdgeDensity  = "edge_density"
	KeyNoiseLevel   = "noise_level"
	KeyColorEntropy = "color_entropy"
)

// FrameStats are the per-image statistics shared by image and video.
type FrameStats struct {
	EdgeDensity  float64
	NoiseLevel   float64
	ColorEntropy float64
}

// DefaultMaxPixels bounds decoded frames. Feature planes cost a few dozen
// bytes per pixel, so this keeps one image around a gigabyte.
const DefaultMaxPixels = 25_000_000

// checkPixels rejects frames larger than max pixels; max <= 0 disables.
func checkPixels(w, h, max int) error {
	if max > 0 && int64(w)*int64(h) > int64(max) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", media.ErrTooLarge, w, h, max)
	}
	return nil
}

// ImageExtractor decodes a still image and computes FrameStats.
type ImageExtractor struct {
	MaxPixels int
}

func (e ImageExtractor) Extract(ctx context.Context, path string) (media.FeatureVector, error) {
	f, err := os.Open(path)
	if err != nil {
		return media.FeatureVector{}, fmt.Errorf("%w: %v", media.ErrUnreadableMedia, err)
	}
	defer f.Close()

	// dimensions first, so a tiny compressed file cannot expand unchecked
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return media.FeatureVector{}, fmt.Errorf("%w: decode image header: %v", media.ErrUnreadableMedia, err)
	}
	if err := checkPixels(cfg.Width, cfg.Height, e.MaxPixels); err != nil {
		return media.FeatureVector{}, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return media.FeatureVector{}, fmt.Errorf("%w: %v", media.ErrUnreadableMedia, err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return media.FeatureVector{}, fmt.Errorf("%w: decode image: %v", media.ErrUnreadableMedia, err)
	}
	if err := ctx.Err(); err != nil {
		return media.FeatureVector{}, err
	}
	st, err := ComputeFrameStats(img)
	if err != nil {
		return media.FeatureVector{}, err
	}

	fv := media.NewFeatureVector(media.KindImage)
	fv.Scalars[KeyEdgeDensity] = st.EdgeDensity
	fv.Scalars[KeyNoiseLevel] = st.NoiseLevel
	fv.Scalars[KeyColorEntropy] = st.ColorEntropy
	return fv, nil
}

// ComputeFrameStats computes edge density, Laplacian variance and hue entropy.
func ComputeFrameStats(img image.Image) (FrameStats, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return FrameStats{}, fmt.Errorf("%w: empty image", media.ErrNoSignal)
	}
	g, hues := decompose(img)
	return FrameStats{
		EdgeDensity:  cannyDensity(g),
		NoiseLevel:   laplacianVariance(g),
		ColorEntropy: shannonEntropy(hues),
	}, nil
}

type grayPlane struct {
	w, h int
	pix  []int
}

func (g *grayPlane) at(x, y int) int {
	return g.pix[reflect101(y, g.h)*g.w+reflect101(x, g.w)]
}

// replicated clamps to the nearest border pixel; the Sobel pass of Canny
// uses this border, the Laplacian uses reflect-101.
func (g *grayPlane) replicated(x, y int) int {
	return g.pix[clamp(y, g.h)*g.w+clamp(x, g.w)]
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// reflect101 mirrors an out-of-range index without repeating the edge.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// decompose returns the 8-bit luma plane and the HSV hue of every pixel.
func decompose(img image.Image) (*grayPlane, []float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grayPlane{w: w, h: h, pix: make([]int, w*h)}
	hues := make([]float64, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			r, gg, bb := int(r16>>8), int(g16>>8), int(b16>>8)
			// fixed-point BT.601, 14 fractional bits
			g.pix[y*w+x] = (r*4899 + gg*9617 + bb*1868 + (1 << 13)) >> 14
			hues[y*w+x] = hue(float64(r)/255, float64(gg)/255, float64(bb)/255)
		}
	}
	return g, hues
}

func hue(r, g, b float64) float64 {
	mx := math.Max(r, math.Max(g, b))
	mn := math.Min(r, math.Min(g, b))
	delta := mx - mn
	if delta == 0 {
		return 0
	}
	var h float64
	switch {
	case b == mx:
		h = 4 + (r-g)/delta
	case g == mx:
		h = 2 + (b-r)/delta
	default:
		h = (g - b) / delta
	}
	h /= 6
	return h - math.Floor(h)
}

// shannonEntropy is the base-2 entropy over the distinct values of xs.
func shannonEntropy(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	counts := make(map[float64]int)
	for _, v := range xs {
		counts[v]++
	}
	keys := make([]float64, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	n := float64(len(xs))
	var e float64
	for _, k := range keys {
		p := float64(counts[k]) / n
		e -= p * math.Log2(p)
	}
	return e
}

// laplacianVariance uses the 4-neighbour kernel with reflect-101 borders.
func laplacianVariance(g *grayPlane) float64 {
	vals := make([]float64, g.w*g.h)
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			v := g.at(x-1, y) + g.at(x+1, y) + g.at(x, y-1) + g.at(x, y+1) - 4*g.at(x, y)
			vals[y*g.w+x] = float64(v)
		}
	}
	return variance(vals)
}

const (
	cannyShift = 15
	tg22       = 13573 // tan(22.5deg) in Q15
)

// cannyDensity runs Sobel 3x3 over a replicated border with L1 magnitude,
// non-maximum suppression and hysteresis, and returns the share of edge pixels.
func cannyDensity(g *grayPlane) float64 {
	w, h := g.w, g.h
	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	at := g.replicated
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := (at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x-1, y) + at(x-1, y+1))
			gy := (at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)) -
				(at(x-1, y-1) + 2*at(x, y-1) + at(x+1, y-1))
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = abs(gx) + abs(gy)
		}
	}
	magAt := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	stack := make([]int, 0, 64)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= cannyLow {
				continue
			}
			xs, ys := dx[i], dy[i]
			ax := abs(xs)
			ay := abs(ys) << cannyShift
			tg22x := ax * tg22

			local := false
			if ay < tg22x {
				local = m > magAt(x-1, y) && m >= magAt(x+1, y)
			} else {
				tg67x := tg22x + (ax << (cannyShift + 1))
				if ay > tg67x {
					local = m > magAt(x, y-1) && m >= magAt(x, y+1)
				} else {
					s := 1
					if (xs ^ ys) < 0 {
						s = -1
					}
					local = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
				}
			}
			if !local {
				continue
			}
			if m > cannyHigh {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				nx, ny := x+ox, y+oy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	edges := 0
	for _, s := range state {
		if s == strong {
			edges++
		}
	}
	return float64(edges) / float64(w*h)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
