package main

import (
	"testing"

	"github.com/vango-dev/remoteui/pkg/delta"
	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/vtest"
)

func TestDemoViewerIndexes(t *testing.T) {
	d := newDemo()
	a := vtest.NewViewer(t, d.app, vtest.WithScreen(400, 300))
	b := vtest.NewViewer(t, d.app, vtest.WithScreen(400, 300))

	vtest.ExpectText(t, a.Idle(), "Viewer #0")
	vtest.ExpectText(t, b.Idle(), "Viewer #1")
}

func TestDemoIncrementIsShared(t *testing.T) {
	d := newDemo()
	a := vtest.NewViewer(t, d.app, vtest.WithScreen(400, 300))
	b := vtest.NewViewer(t, d.app, vtest.WithScreen(400, 300))
	a.Idle()
	b.Idle()

	f := a.Click(30, 90)
	if d.count != 1 {
		t.Fatalf("count = %d after click, want 1", d.count)
	}
	if !a.Repainted() {
		t.Error("click should repaint")
	}
	if a.LastKind() != delta.KindPartial {
		t.Errorf("update kind = %v, want partial", a.LastKind())
	}
	vtest.ExpectText(t, f, "Your clicks: 1")
	vtest.ExpectRealized(t, f)

	f = b.Idle()
	if !b.Repainted() {
		t.Error("other viewer should see a changed frame")
	}
	vtest.ExpectText(t, f, "Shared count: 1")
	vtest.ExpectText(t, f, "Your clicks: 0")
	vtest.ExpectShapes(t, f, frame.ShapeCircle, 1)
}

func TestDemoCopy(t *testing.T) {
	d := newDemo()
	v := vtest.NewViewer(t, d.app, vtest.WithScreen(400, 300))
	v.Idle()

	f := v.Click(150, 90)
	if f.Platform.CopiedText != "0" {
		t.Errorf("CopiedText = %q, want \"0\"", f.Platform.CopiedText)
	}
}
