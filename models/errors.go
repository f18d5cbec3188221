package models

import "errors"

var (
	ErrDuplicateName    = errors.New("food is already registered")
	ErrNotFound         = errors.New("food not found")
	ErrEmptyName        = errors.New("food name is empty")
	ErrReservedName     = errors.New("food name is reserved for the total row")
	ErrInvalidProfile   = errors.New("nutrient values must be finite and non-negative")
	ErrInvalidWeight    = errors.New("weight must be greater than 0")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrAtTopBoundary    = errors.New("item is already at the top")
	ErrAtBottomBoundary = errors.New("item is already at the bottom")
)
