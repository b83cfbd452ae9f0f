package pagination

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 10, 9, 30, 0, 123, time.UTC), ID: 42}
	out, err := ParseCursor(EncodeCursor(in))
	if err != nil {
		t.Fatalf("ParseCursor returned error: %v", err)
	}
	if out == nil || out.ID != 42 || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("unexpected cursor %+v", out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); err != nil || c != nil {
		t.Fatalf("expected nil cursor for empty input, got %+v %v", c, err)
	}
	if _, err := ParseCursor("%%%"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -1: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatal("expected buffer of one")
	}
}
