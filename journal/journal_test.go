package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "journal.db")

	j, err := Open(&Options{Path: path, Timeout: time.Second})
	require.NoError(t, err)

	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		ids = append(ids, id.String())

		require.NoError(t, j.Append(&Run{
			ID:          id.String(),
			Dataset:     "data/orders.csv",
			Table:       "orders",
			Status:      StatusSucceeded,
			StartedAt:   started.Add(time.Duration(i) * time.Minute),
			Duration:    1500 * time.Millisecond,
			RowsLoaded:  3,
			RowsWritten: 3,
		}))
	}

	runs, err := j.List(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.True(t, runs[0].StartedAt.Equal(started.Add(2*time.Minute)))
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.Equal(t, int64(3), runs[0].RowsWritten)

	all, err := j.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.Error(t, j.Append(&Run{}))
	require.NoError(t, j.Close())

	// 重新打开后记录仍然存在
	j, err = Open(&Options{Path: path, Timeout: time.Second})
	require.NoError(t, err)
	defer j.Close()

	failed := &Run{ID: ids[0], Status: StatusFailed, Stage: "insert", Error: "boom", RowsSent: 2}
	require.NoError(t, j.Append(failed))

	all, err = j.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, StatusFailed, all[2].Status)
	assert.Equal(t, 2, all[2].RowsSent)
}
