// Package server drives many remote viewers from one render loop.
//
// # Architecture
//
// Two concurrency domains meet in this package:
//
//   - I/O: one pair of goroutines per websocket (read loop, write loop)
//     decodes input frames and writes encoded updates.
//   - Render: a single goroutine owned by the application calls Host.Tick
//     (directly or through Host.Run). It runs the UI callback for every
//     session and encodes the resulting frames.
//
// The domains only meet through Conn, a bounded queue pair per viewer. The
// render side drains inbound input without blocking and blocks on a full
// outbound queue for at most SessionConfig.SendTimeout, after which the
// viewer is disconnected. Toolkit state (ui.Context) never leaves the render
// goroutine.
//
// # Tick
//
// For every session, each tick:
//
//  1. Drain all queued input.
//  2. Run the UI callback once per input; send an update only when the pass
//     requests a repaint. Remember an event-free copy of the last input.
//  3. With no input but the force flag set, replay the remembered input so
//     changes made by other viewers reach this one.
//
// The force flag for the next tick is whether any session repainted this
// tick. It is owned by the Host and passed to each session explicitly.
//
// # Failures
//
// Connection and protocol errors close only the affected session. A panic
// in the UI callback is recovered, logged and closes only that session.
package server
