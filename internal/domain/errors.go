package domain

import "errors"

var (
	ErrUnknownSymbol     = errors.New("unknown symbol")
	ErrDuplicateSymbol   = errors.New("duplicate symbol")
	ErrNegativePrice     = errors.New("negative price")
	ErrEmptyCatalog      = errors.New("catalog has no symbols")
	ErrConnectionGone    = errors.New("connection gone")
	ErrSlowConnection    = errors.New("connection send buffer full")
	ErrConnectionLimited = errors.New("connection limit reached")
)
