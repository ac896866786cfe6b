// Package provider holds the pieces shared by the upstream market-data
// clients: the JSON-over-HTTP transport with error classification, the shared
// request budget, the retry classifier and the caching decorators.
//
// Concrete providers live in the yahoo, finnhub and mock subpackages.
package provider
