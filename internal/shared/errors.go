package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrTenantRequired occurs when a request carries no tenant.
	ErrTenantRequired = errors.New("tenant required")
)
