// Package server wires the Echo HTTP layer: vote intake, account and
// admin APIs, SSE and WebSocket live update streams, and health and
// metrics endpoints.
package server
