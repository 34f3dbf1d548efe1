package main

import (
	"fmt"

	"github.com/vango-dev/remoteui/pkg/frame"
	"github.com/vango-dev/remoteui/pkg/ui"
	"github.com/vango-dev/remoteui/pkg/userdata"
)

var (
	demoBackground = frame.RGB(245, 245, 240)
	demoAccent     = frame.RGB(70, 120, 200)
)

const (
	demoMargin      = 20
	demoLineHeight  = 32
	demoIncrementAt = 2 // line of the Increment button
)

// demo is a counter shared by every viewer. It runs only on the render
// loop goroutine.
type demo struct {
	count  int
	viewer *userdata.Sequence
	clicks *userdata.Key[int]
}

func newDemo() *demo {
	return &demo{
		viewer: userdata.NewSequence("demo.viewer"),
		clicks: userdata.NewKey[int]("demo.clicks"),
	}
}

func line(n int) frame.Pos2 {
	return frame.Pos2{X: demoMargin, Y: demoMargin + float32(n)*demoLineHeight}
}

func (d *demo) app(ctx *ui.Context) {
	screen := ctx.Screen()
	if screen.Width() > 0 {
		ctx.FillRect(screen, 0, demoBackground)
	}

	data := ctx.Data()
	idx := d.viewer.Index(data)
	ctx.Label(line(0), fmt.Sprintf("Viewer #%d", idx), 18, frame.Black)
	ctx.Label(line(1), fmt.Sprintf("Shared count: %d", d.count), 14, frame.Black)

	if ctx.Button(line(demoIncrementAt), "Increment") {
		d.count++
		d.clicks.Update(data, func(n int) int { return n + 1 })
	}
	if ctx.Button(line(demoIncrementAt).Add(frame.Vec2{X: 120}), "Copy") {
		ctx.CopyText(fmt.Sprint(d.count))
	}

	mine, _ := d.clicks.Get(data)
	ctx.Label(line(3), fmt.Sprintf("Your clicks: %d", mine), 14, frame.Gray)

	center := line(5).Add(frame.Vec2{X: 40})
	ctx.Circle(center, 10+float32(d.count%30), demoAccent)
}
