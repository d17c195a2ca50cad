// Package broadcast drives the periodic price tick using the actor pattern.
//
// A single goroutine owns the tick loop. Each tick advances the price store,
// sends the full snapshot to every live connection, then sends each connection
// with a non-empty subscription set the prices it asked for. Commands (manual
// tick, stop) are serialized through a channel with the ticker, so no tick
// ever overlaps another.
package broadcast
