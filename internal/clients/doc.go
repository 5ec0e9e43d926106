// Package clients contains the raw HTTP clients for the Trakt and TMDB
// APIs. They issue single logical calls through the retry executor and do
// no caching; composition and degradation policy live in the service layer.
package clients
