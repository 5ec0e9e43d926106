package domain

import "errors"

var (
	ErrNoContent           = errors.New("no content")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNotAuthorized       = errors.New("not authorized")
	ErrFlowInProgress      = errors.New("device flow already in progress")
)
