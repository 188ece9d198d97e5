package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pool-watch/internal/alert"
)

func TestStore_AppendAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "alerts.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, alert.Decision{
		ID: "a", At: base, Kind: alert.KindFailover, Status: alert.StatusSent, FromPool: "blue", ToPool: "green",
	}))
	require.NoError(t, store.Append(ctx, alert.Decision{
		ID: "b", At: base.Add(time.Second), Kind: alert.KindErrorRate, Status: alert.StatusSuppressed,
		SuppressedBy: alert.SuppressedByCooldown, Reason: "冷却中",
	}))
	// 重复 id 忽略
	require.NoError(t, store.Append(ctx, alert.Decision{ID: "a", At: base, Kind: alert.KindFailover, Status: alert.StatusFailed}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
	assert.Equal(t, alert.SuppressedByCooldown, recent[0].SuppressedBy)
	assert.Equal(t, "a", recent[1].ID)
	assert.Equal(t, alert.StatusSent, recent[1].Status)
	assert.Equal(t, "green", recent[1].ToPool)
	assert.True(t, base.Equal(recent[1].At))
}

func TestStore_NilIsNoop(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Append(context.Background(), alert.Decision{ID: "x"}))
	assert.NoError(t, store.Close())
}
