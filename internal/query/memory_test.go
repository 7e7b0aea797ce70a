package query

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryInsertAssignsDefaults(t *testing.T) {
	store := NewMemoryDatastore(WithClock(func() time.Time { return seedBase }))

	row, err := store.Insert(context.Background(), "products", Row{"name": "Thermometer"})

	require.NoError(t, err)
	assert.NotEmpty(t, row["id"])
	assert.Equal(t, seedBase, row["created_at"])
	assert.Equal(t, seedBase, row["updated_at"])
}

func TestMemoryUniqueConstraint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDatastore(WithUnique("admin_users", "username"))

	_, err := store.Insert(ctx, "admin_users", Row{"id": "1", "username": "root"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, "admin_users", Row{"id": "2", "username": "root"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.Insert(ctx, "admin_users", Row{"id": "3", "username": "other"})
	require.NoError(t, err)
	_, err = store.Update(ctx, "admin_users", Filter{Column: "id", Value: "3"}, Row{"username": "root"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.Update(ctx, "admin_users", Filter{Column: "id", Value: "1"}, Row{"username": "root"})
	assert.NoError(t, err)
}

func TestMemoryMissingRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDatastore()

	_, err := store.From("orders").Eq("id", "nope").Single(ctx)
	assert.ErrorIs(t, err, ErrNoRows)

	_, err = store.Update(ctx, "orders", Filter{Column: "id", Value: "nope"}, Row{"status": "paid"})
	assert.ErrorIs(t, err, ErrNoRows)

	assert.ErrorIs(t, store.Delete(ctx, "orders", Filter{Column: "id", Value: "nope"}), ErrNoRows)
}

func TestMemoryReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDatastore()
	_, err := store.Insert(ctx, "products", Row{"id": "p1", "name": "Mask"})
	require.NoError(t, err)

	row, err := store.From("products").Eq("id", "p1").Single(ctx)
	require.NoError(t, err)
	row["name"] = "changed"

	again, err := store.From("products").Eq("id", "p1").Single(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Mask", again["name"])
}

func TestMemorySelectProjectsColumns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDatastore()
	_, err := store.Insert(ctx, "products", Row{"id": "p1", "name": "Mask", "price": 2.5})
	require.NoError(t, err)

	res, err := store.From("products").Select("id", "price").Execute(ctx)

	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, Row{"id": "p1", "price": 2.5}, res.Rows[0])
}

func TestMemoryNullsSortLastAscending(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDatastore()
	for _, r := range []Row{{"id": "a", "paid_at": nil}, {"id": "b", "paid_at": seedBase}} {
		_, err := store.Insert(ctx, "orders", r)
		require.NoError(t, err)
	}

	res, err := store.From("orders").Order("paid_at", true).Execute(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(res.Rows))
}

func TestMemoryRangeClampsBounds(t *testing.T) {
	store := seedArticles(t, 5)
	ctx := context.Background()

	res, err := store.From("articles").Order("id", true).Range(-10, 1).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a00", "a01"}, ids(res.Rows))

	res, err = store.From("articles").Range(math.MaxInt-5, math.MaxInt).Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 5, res.Count)

	res, err = store.From("articles").Range(3, 1).Execute(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Rows)
}
