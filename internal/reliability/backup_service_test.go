package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testhelpers "github.com/aristath/pricewatch/internal/testing"
)

type memoryStore struct {
	objects   map[string][]byte
	deleteErr map[string]error
	deleted   []string
	listErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memoryStore) List(_ context.Context, _ string) ([]types.Object, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]types.Object, 0, len(m.objects))
	for key, b := range m.objects {
		out = append(out, types.Object{Key: aws.String(key), Size: aws.Int64(int64(len(b)))})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func TestCreateAndUpload(t *testing.T) {
	db, cleanup := testhelpers.NewTestDB(t)
	defer cleanup()
	testhelpers.InsertHolding(t, db, "BTC", 100, 1000)

	store := newMemoryStore()
	svc := NewBackupService(store, db, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }

	key, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alerts-backup-2026-03-04-050607.db.gz", key)

	gz, err := gzip.NewReader(bytes.NewReader(store.objects[key]))
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("SQLite format 3\x00")))
}

func TestListBackups_SortsAndFilters(t *testing.T) {
	store := newMemoryStore()
	store.objects["alerts-backup-2026-01-01-040000.db.gz"] = []byte("a")
	store.objects["alerts-backup-2026-01-03-040000.db.gz"] = []byte("bbb")
	store.objects["alerts-backup-garbage.db.gz"] = []byte("x")
	store.objects["alerts-backup-2026-01-02-040000.tar"] = []byte("x")

	svc := NewBackupService(store, nil, zerolog.Nop())
	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)

	require.Len(t, backups, 2)
	assert.Equal(t, "alerts-backup-2026-01-03-040000.db.gz", backups[0].Key)
	assert.Equal(t, int64(3), backups[0].SizeBytes)
	assert.Equal(t, "alerts-backup-2026-01-01-040000.db.gz", backups[1].Key)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04", "05", "20"} {
		store.objects["alerts-backup-2026-01-"+day+"-040000.db.gz"] = []byte("x")
	}
	store.deleteErr["alerts-backup-2026-01-02-040000.db.gz"] = errors.New("denied")

	svc := NewBackupService(store, nil, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC) }

	// cutoff 2026-01-07: the newest three (20, 05, 04) are kept regardless of age
	deleted, err := svc.RotateOldBackups(context.Background(), 14)
	require.NoError(t, err)

	assert.Equal(t, 2, deleted)
	assert.ElementsMatch(t, []string{
		"alerts-backup-2026-01-03-040000.db.gz",
		"alerts-backup-2026-01-01-040000.db.gz",
	}, store.deleted)
	assert.Contains(t, store.objects, "alerts-backup-2026-01-04-040000.db.gz")
	assert.Contains(t, store.objects, "alerts-backup-2026-01-02-040000.db.gz")
}

func TestRotateOldBackups_KeepsMinimumAndDisabled(t *testing.T) {
	store := newMemoryStore()
	store.objects["alerts-backup-2020-01-01-040000.db.gz"] = []byte("x")
	store.objects["alerts-backup-2020-01-02-040000.db.gz"] = []byte("x")
	svc := NewBackupService(store, nil, zerolog.Nop())

	deleted, err := svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	store.listErr = errors.New("should not list")
	deleted, err = svc.RotateOldBackups(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
