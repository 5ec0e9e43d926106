// Package config is the credential store adapter. It wraps a viper-backed
// credentials file with typed access to the fields the rest of discrakt
// consumes, and owns the save path for OAuth tokens.
package config
