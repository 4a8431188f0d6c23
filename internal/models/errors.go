package models

import "errors"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrDuplicateOrder    = errors.New("order already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyReserved   = errors.New("order already reserved")
)
