package mysql

import (
	"testing"
	"time"
)

func TestStringOrDash(t *testing.T) {
	if got := stringOrDash("  "); got != "-" {
		t.Fatalf("blank: want=%q got=%q", "-", got)
	}
	if got := stringOrDash("a@b.c"); got != "a@b.c" {
		t.Fatalf("value: got=%q", got)
	}
}

func TestJSONOrEmpty(t *testing.T) {
	cases := map[string]string{
		"":              "{}",
		`{"stage":"x"}`: `{"stage":"x"}`,
		"not json":      `{"raw":"not json"}`,
	}
	for in, want := range cases {
		if got := jsonOrEmpty(in); got != want {
			t.Fatalf("%q: want=%q got=%q", in, want, got)
		}
	}
}

func TestPageBounds(t *testing.T) {
	p, s, off := pageBounds(0, 0)
	if p != 1 || s != 20 || off != 0 {
		t.Fatalf("defaults: got page=%d size=%d offset=%d", p, s, off)
	}
	p, s, off = pageBounds(3, 500)
	if p != 3 || s != 100 || off != 200 {
		t.Fatalf("clamped: got page=%d size=%d offset=%d", p, s, off)
	}
}

func TestNowIfZero(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := nowIfZero(fixed); !got.Equal(fixed) {
		t.Fatalf("want=%v got=%v", fixed, got)
	}
	if nowIfZero(time.Time{}).IsZero() {
		t.Fatalf("zero time not replaced")
	}
}
