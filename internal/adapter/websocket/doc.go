// Package websocket is the WebSocket transport for the price dashboard.
//
// Handler upgrades requests, admits them through ConnectionLimits, and runs one
// read loop per connection that decodes {"event","data"} frames and applies
// them through the subscription manager. Hub implements domain.Sender: every
// connection has its own writer goroutine with a bounded buffer, and a
// connection that cannot keep up is evicted rather than slowing the tick.
package websocket
