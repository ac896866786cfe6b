// Package broadcast implements the WebSocket fan-out hub using the actor pattern.
//
// A single goroutine owns the connection set and serves a command channel. Each
// connection gets a bounded outbound queue drained by its own writer goroutine,
// so a slow client never blocks publishers or other clients.
package broadcast
