// Package vtest provides testing helpers for remoteui applications.
//
// A Viewer runs a ui.App the way a host session does and feeds every update
// through the wire codec and a delta.Decoder, so assertions see exactly the
// frame a remote viewer would draw.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    v := vtest.NewViewer(t, app, vtest.WithScreen(400, 300))
//	    f := v.Step(vtest.NewInput().Build())
//	    vtest.ExpectText(t, f, "Count: 0")
//
//	    f = v.Click(30, 90)
//	    vtest.ExpectText(t, f, "Count: 1")
//	}
//
// # Fluent Input Builder
//
//	in := vtest.NewInput().
//	    Screen(800, 600).
//	    MoveTo(10, 10).
//	    Click(10, 10).
//	    Type("hello").
//	    Build()
package vtest
