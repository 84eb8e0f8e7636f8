package repository

import "errors"

var (
	ErrInvalidMappingData    = errors.New("invalid mapping data")
	ErrInvalidCredentialData = errors.New("invalid credential data")
)
