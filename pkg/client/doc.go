// Package client is the viewer side of a remote surface.
//
// A Client dials a host, performs the protocol handshake, sends input
// snapshots and turns the stream of updates back into frames:
//
//	c, err := client.Dial(ctx, "ws://localhost:8080/ws",
//	    client.WithViewport(800, 600),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	for {
//	    f, err := c.Next(ctx)
//	    if err != nil {
//	        return err // every decode error is fatal for the connection
//	    }
//	    draw(client.TranslateFrame(f, widgetRect.Min))
//	}
//
// When the remote surface is embedded in a larger local surface, input is
// captured in local coordinates and mapped with TranslateInput before
// sending; decoded frames are mapped back with TranslateFrame.
package client
