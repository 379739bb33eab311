// Package broadcast implements the WebSocket tally hub using the actor pattern.
//
// The Hub consumes vote update notifications from a single broadcast
// subscription and fans them out to connected clients. Uses a single
// goroutine + command channel (no mutexes). Per-connection write
// goroutines handle slow clients gracefully.
package broadcast
