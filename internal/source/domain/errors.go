package domain

import "errors"

var (
	ErrSourceUnavailable = errors.New("source_unavailable")
	ErrCustomerNotFound  = errors.New("customer_not_found")
)
