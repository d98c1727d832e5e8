package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyDataset    = errors.New("empty dataset")
	ErrUnknownColumn   = errors.New("unknown column")
	ErrInvalidArgument = errors.New("invalid argument")
)
