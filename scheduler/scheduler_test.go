package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	archivedAt time.Time
	cutoff     time.Time
	err        error
}

func (f *fakeStore) ArchiveExpiredJobs(_ context.Context, now time.Time) (int64, error) {
	f.archivedAt = now
	return 3, f.err
}

func (f *fakeStore) ExpireStaleTransactions(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 1, f.err
}

func TestJobs(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st := &fakeStore{}
	s := New(st, logrus.New())
	s.now = func() time.Time { return now }

	t.Run("Should archive jobs expired as of now", func(t *testing.T) {
		n, err := s.ArchiveExpiredJobs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.Equal(t, now, st.archivedAt)
	})

	t.Run("Should expire checkouts pending for a day", func(t *testing.T) {
		n, err := s.ExpirePendingTransactions(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, now.Add(-24*time.Hour), st.cutoff)
	})

	t.Run("Should log failures without panicking", func(t *testing.T) {
		st.err = errors.New("db down")
		assert.NotPanics(t, func() { s.run("archive_expired_jobs", s.ArchiveExpiredJobs) })
	})
}

func TestStartStop(t *testing.T) {
	s := New(&fakeStore{}, logrus.New())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
