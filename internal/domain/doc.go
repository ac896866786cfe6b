// Package domain defines the core market-data types and the contracts between components.
//
// Concept-oriented files (symbol.go, quote.go, news.go, sentiment.go, errors.go, ports.go)
// hold shared types and consumer-side interfaces. No implementation code beyond small value helpers.
package domain
