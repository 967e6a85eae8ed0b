package repository

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/telcopulse/pkg/db"
	"github.com/smallbiznis/telcopulse/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type widget struct {
	ID    string `gorm:"primaryKey"`
	Label string
	Count int
}

func setupStore(t *testing.T) (*gorm.DB, Repository[widget]) {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&widget{}))
	return conn, ProvideStore[widget](conn)
}

func TestReplaceAllSwapsContent(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	n, err := store.ReplaceAll(ctx, []*widget{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.ReplaceAll(ctx, []*widget{{ID: "d", Label: "new"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := store.Find(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d", rows[0].ID)
}

func TestReplaceAllWithNoRowsEmptiesTable(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	_, err := store.ReplaceAll(ctx, []*widget{{ID: "a"}})
	require.NoError(t, err)
	n, err := store.ReplaceAll(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReplaceAllRollsBackOnDuplicate(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	_, err := store.ReplaceAll(ctx, []*widget{{ID: "keep"}})
	require.NoError(t, err)

	_, err = store.ReplaceAll(ctx, []*widget{{ID: "x"}, {ID: "x"}})
	require.Error(t, err)
	assert.True(t, db.IsDuplicateKeyErr(err))

	rows, err := store.Find(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].ID)
}

func TestReplaceAllRollsBackOnCancel(t *testing.T) {
	_, store := setupStore(t)

	_, err := store.ReplaceAll(context.Background(), []*widget{{ID: "keep"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = store.ReplaceAll(ctx, []*widget{{ID: "gone"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	rows, err := store.Find(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].ID)
}

func TestFindOneAndUpdates(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	missing, err := store.FindOne(ctx, option.WithWhere("id = ?", "nope"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.Create(ctx, &widget{ID: "a", Label: "old"}))
	require.NoError(t, store.Updates(ctx, &widget{ID: "a"}, map[string]any{"label": "new", "count": 4}))

	got, err := store.FindOne(ctx, option.WithWhere("id = ?", "a"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Label)
	assert.Equal(t, 4, got.Count)
}

func TestLockTimeoutStatementFollowsDeadline(t *testing.T) {
	_, ok := lockTimeoutStatement(context.Background())
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stmt, ok := lockTimeoutStatement(ctx)
	require.True(t, ok)

	m := regexp.MustCompile(`^SET LOCAL lock_timeout = '(\d+)ms'$`).FindStringSubmatch(stmt)
	require.Len(t, m, 2, stmt)
	ms, err := strconv.Atoi(m[1])
	require.NoError(t, err)
	assert.Greater(t, ms, 29000)
	assert.LessOrEqual(t, ms, 30000)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	stmt, ok = lockTimeoutStatement(expired)
	require.True(t, ok)
	assert.Equal(t, "SET LOCAL lock_timeout = '1ms'", stmt)
}
