package domain

import "errors"

var (
	ErrUnknownProvider    = errors.New("unknown identity provider")
	ErrInvalidGeometry    = errors.New("invalid exclusion zone geometry")
	ErrNoActiveKey        = errors.New("no active signing key")
	ErrAmbiguousActiveKey = errors.New("ambiguous active signing key")
	ErrKeyRepository      = errors.New("key repository error")
	ErrInvalidKeyMaterial = errors.New("invalid key material")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
)
