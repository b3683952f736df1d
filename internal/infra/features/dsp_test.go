package features

import (
	"math"
	"math/cmplx"
	"testing"
)

func TestSpectrogramMatchesDFT(t *testing.T) {
	const sr = 8192
	y := make([]float64, sr)
	for i := range y {
		y[i] = math.Sin(2*math.Pi*1000*float64(i)/sr) + 0.1*math.Sin(float64(i)*0.37)
	}
	spec := magnitudeSpectrogram(y)
	if len(spec) != 1+sr/hopSize {
		t.Fatalf("frames: want=%d got=%d", 1+sr/hopSize, len(spec))
	}

	const frame = 4
	padded := padCenter(y, nFFT, false)
	win := hann(nFFT)
	for _, k := range []int{0, 3, 250, 700, nFFT / 2} {
		var want complex128
		for i := 0; i < nFFT; i++ {
			want += complex(padded[frame*hopSize+i]*win[i], 0) * cmplx.Rect(1, -2*math.Pi*float64(k*i)/nFFT)
		}
		if got := spec[frame][k]; math.Abs(got-cmplx.Abs(want)) > 1e-6*(1+cmplx.Abs(want)) {
			t.Fatalf("bin %d: want=%v got=%v", k, cmplx.Abs(want), got)
		}
	}

	peak := 0
	for k, v := range spec[frame] {
		if v > spec[frame][peak] {
			peak = k
		}
	}
	if f := fftFrequencies(sr)[peak]; f != 1000 {
		t.Fatalf("peak frequency: want=1000 got=%v", f)
	}
}

func TestMeanVarianceEmpty(t *testing.T) {
	if mean(nil) != 0 || variance(nil) != 0 {
		t.Fatalf("empty series: want zeros")
	}
	if v := variance([]float64{1, 2, 3, 4}); math.Abs(v-1.25) > 1e-12 {
		t.Fatalf("population variance: want=1.25 got=%v", v)
	}
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 200, 999, 1000, 4000, 11025} {
		if got := melToHz(hzToMel(hz)); math.Abs(got-hz) > 1e-6 {
			t.Fatalf("%v Hz: got=%v", hz, got)
		}
	}
	if m := hzToMel(1000); math.Abs(m-15) > 1e-12 {
		t.Fatalf("1000 Hz: want=15 got=%v", m)
	}
}

func TestDCTOrthoConstant(t *testing.T) {
	x := make([]float64, 8)
	for i := range x {
		x[i] = 2
	}
	c := dctOrtho(x, 3)
	if math.Abs(c[0]-2*math.Sqrt(8)) > 1e-12 {
		t.Fatalf("c0: want=%v got=%v", 2*math.Sqrt(8), c[0])
	}
	if math.Abs(c[1]) > 1e-12 || math.Abs(c[2]) > 1e-12 {
		t.Fatalf("higher coefficients should vanish: %v", c)
	}
}

func TestReflect101(t *testing.T) {
	cases := []struct{ i, n, want int }{
		{-1, 5, 1}, {-2, 5, 2}, {5, 5, 3}, {6, 5, 2}, {0, 1, 0}, {-1, 1, 0}, {2, 5, 2},
	}
	for _, c := range cases {
		if got := reflect101(c.i, c.n); got != c.want {
			t.Fatalf("reflect101(%d,%d): want=%d got=%d", c.i, c.n, c.want, got)
		}
	}
}

func TestShannonEntropyIgnoresOrder(t *testing.T) {
	a := shannonEntropy([]float64{0.1, 0.2, 0.2, 0.3})
	b := shannonEntropy([]float64{0.3, 0.2, 0.1, 0.2})
	if a != b {
		t.Fatalf("want equal got %v vs %v", a, b)
	}
	if math.Abs(a-1.5) > 1e-12 {
		t.Fatalf("want=1.5 got=%v", a)
	}
}
