// Package handler exposes the first-run setup surface: submitting Trakt
// credentials and observing the device-flow progress.
package handler
