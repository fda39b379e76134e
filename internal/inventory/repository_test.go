package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarehouseExistsQuery(t *testing.T) {
	query, args, err := warehouseExistsQuery(4, 9).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT EXISTS (SELECT 1 FROM warehouses WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL)",
		query)
	assert.Equal(t, []any{int64(4), int64(9)}, args)
}

func TestAvailableBatchesQueryLocksOldestFirst(t *testing.T) {
	query, args, err := availableBatchesQuery(1, 2, 3).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "FROM product_batches WHERE")
	assert.Contains(t, query, "ORDER BY created_at, id FOR UPDATE")
	assert.Contains(t, query, "status = $")
	assert.Len(t, args, 4)
	assert.Contains(t, args, BatchStatusAvailable)
}
