package trace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sequenceIDs struct {
	ids []string
	i   int
}

func (g *sequenceIDs) Generate() string {
	id := g.ids[g.i]
	g.i++
	return id
}

func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "trace.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, s.Close())
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestStore_CreateSession(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := createTestStore(t, WithNow(func() time.Time { return now }))
	ctx := context.Background()

	sess, err := s.CreateSession(ctx, "frame-test", map[string]any{"producers": 2, "policy": "nosync"})
	require.NoError(t, err)

	parsed, err := uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Equal(t, `{"policy":"nosync","producers":2}`, sess.Meta)
	assert.Len(t, sess.MetaHash, 64)

	got, err := s.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Name, got.Name)
	assert.Equal(t, sess.MetaHash, got.MetaHash)
	assert.True(t, now.Equal(got.CreatedAt))
	assert.Equal(t, 0, got.Records)
}

func TestStore_SameMetaSameHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.CreateSession(ctx, "a", map[string]any{"x": 1})
	require.NoError(t, err)
	b, err := s.CreateSession(ctx, "b", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, a.MetaHash, b.MetaHash)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_SessionNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.LatestSession(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SessionsOrdered(t *testing.T) {
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := createTestStore(t,
		WithIDGenerator(&sequenceIDs{ids: []string{"s-b", "s-a"}}),
		WithNow(func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		}),
	)
	ctx := context.Background()

	_, err := s.CreateSession(ctx, "first", nil)
	require.NoError(t, err)
	_, err = s.CreateSession(ctx, "second", nil)
	require.NoError(t, err)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s-b", sessions[0].ID)
	assert.Equal(t, "s-a", sessions[1].ID)

	latest, err := s.LatestSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Name)
}

func TestStore_WriteAndReadRecords(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, "rw", nil)
	require.NoError(t, err)

	records := []Record{
		{Seq: 1, Queue: 3, Index: 1, DebugID: 10, Position: 0},
		{Seq: 2, Queue: 3, Index: 2, DebugID: 11, CallbackID: 7, Notify: true, Position: 1},
		{Seq: 3, Queue: 4, Index: 1, DebugID: 12, ReturnsValue: true, Position: 0},
	}
	require.NoError(t, s.WriteRecords(ctx, sess.ID, records))
	// Rewrites are ignored.
	require.NoError(t, s.WriteRecords(ctx, sess.ID, records[:1]))

	got, err := s.ReadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	at, err := s.RecordAt(ctx, sess.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, records[1], at)

	_, err = s.RecordAt(ctx, sess.ID, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	byCmd, err := s.CommandRecords(ctx, sess.ID, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []Record{records[1]}, byCmd)

	info, err := s.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Records)
}

func TestStore_ReadEmptySession(t *testing.T) {
	s := createTestStore(t)
	got, err := s.ReadSession(context.Background(), "none")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_WriteRecordsUnknownSession(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRecords(context.Background(), "missing", []Record{{Seq: 1}})
	assert.Error(t, err, "foreign key must reject records without a session")
}
