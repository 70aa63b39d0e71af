package domain

import "errors"

var (
	ErrKeyNotFound            = errors.New("access key not found")
	ErrKeyAlreadyUsed         = errors.New("access key already used")
	ErrKeyGenerationExhausted = errors.New("could not generate a unique access key")
	ErrMissingKey             = errors.New("access key is required")
	ErrInvalidUnlock          = errors.New("exactly one of unlocksCapability or cartToUnlock must be set")
)
