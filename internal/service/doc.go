// Package service composes the upstream clients into the behavior the
// presence pipeline consumes: cache-augmented media queries that degrade
// to defaults instead of failing, and the OAuth device-flow authorizer
// with its background polling worker.
package service
