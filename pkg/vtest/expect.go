package vtest

import (
	"strings"
	"testing"

	"github.com/vango-dev/remoteui/pkg/frame"
)

// Texts returns the text of every text shape in f, in paint order.
func Texts(f *frame.Frame) []string {
	if f == nil {
		return nil
	}
	var out []string
	for _, cs := range f.Shapes {
		if cs.Shape.Text != nil && cs.Shape.Text.Job != nil {
			out = append(out, cs.Shape.Text.Job.Text)
		}
	}
	return out
}

// ExpectText asserts that some text shape of f contains expected.
func ExpectText(t testing.TB, f *frame.Frame, expected string) {
	t.Helper()
	for _, s := range Texts(f) {
		if strings.Contains(s, expected) {
			return
		}
	}
	t.Errorf("expected a text shape containing %q, got %q", expected, Texts(f))
}

// ExpectNoText asserts that no text shape of f contains unexpected.
func ExpectNoText(t testing.TB, f *frame.Frame, unexpected string) {
	t.Helper()
	for _, s := range Texts(f) {
		if strings.Contains(s, unexpected) {
			t.Errorf("expected no text shape containing %q, got %q", unexpected, Texts(f))
			return
		}
	}
}

// CountShapes returns the number of shapes of kind in f.
func CountShapes(f *frame.Frame, kind frame.ShapeKind) int {
	if f == nil {
		return 0
	}
	n := 0
	for _, cs := range f.Shapes {
		if cs.Shape.Kind == kind {
			n++
		}
	}
	return n
}

// ExpectShapes asserts that f holds exactly n shapes of kind.
func ExpectShapes(t testing.TB, f *frame.Frame, kind frame.ShapeKind, n int) {
	t.Helper()
	if got := CountShapes(f, kind); got != n {
		t.Errorf("expected %d %s shapes, got %d", n, kind, got)
	}
}

// ExpectRealized asserts that every text shape of f carries a galley.
func ExpectRealized(t testing.TB, f *frame.Frame) {
	t.Helper()
	if f == nil {
		t.Error("expected a frame, got nil")
		return
	}
	for i, cs := range f.Shapes {
		if cs.Shape.Text != nil && cs.Shape.Text.Galley == nil {
			t.Errorf("text shape %d (%q) has no galley", i, cs.Shape.Text.Job.Text)
		}
	}
}
