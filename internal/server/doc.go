// Package server implements the HTTP surface using Echo.
//
// Routes: the WebSocket feed (/ws, legacy /ws/:symbol), REST lookups under
// /api, health probes, /metrics and /version. Feed connections pass the
// connection limits before upgrade and then belong to the broadcast hub.
package server
