// Package app provides the application service layer.
//
// The Scheduler turns Registry activation events into per-symbol polling
// tasks. FanOut lets the pollers feed the hub and the optional Kafka mirror
// through one sink.
package app
