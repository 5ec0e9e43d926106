// Package app wires the credential store, the upstream clients and the
// services together, runs the first-run setup server when needed, and
// drives the presence polling loop.
package app
