// Package domain defines the core entities shared across discrakt: the
// Trakt watching models, the OAuth device-flow types, and the interfaces
// the presence pipeline consumes.
package domain
