package httpx

import (
	"net/http"

	"github.com/sao-erp/sao-erp/internal/shared"
)

// TenantID returns the tenant resolved by the tenant middleware.
func TenantID(r *http.Request) (int64, error) {
	id, ok := shared.TenantFromContext(r.Context())
	if !ok {
		return 0, ErrTenantMissing
	}
	return id, nil
}
