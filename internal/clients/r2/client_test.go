package r2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listResponse = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>backups</Name>
  <Prefix>alerts-backup-</Prefix>
  <KeyCount>2</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>alerts-backup-2026-01-01-040000.db.gz</Key>
    <LastModified>2026-01-01T04:00:00.000Z</LastModified>
    <Size>2048</Size>
  </Contents>
  <Contents>
    <Key>alerts-backup-2026-01-02-040000.db.gz</Key>
    <LastModified>2026-01-02T04:00:00.000Z</LastModified>
    <Size>4096</Size>
  </Contents>
</ListBucketResult>`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{
		Endpoint:        server.URL,
		Bucket:          "backups",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
	}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/backups", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("list-type"))
		assert.Equal(t, "alerts-backup-", r.URL.Query().Get("prefix"))
		assert.NotEmpty(t, r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(listResponse))
	})

	objects, err := client.List(context.Background(), "alerts-backup-")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "alerts-backup-2026-01-01-040000.db.gz", aws.ToString(objects[0].Key))
	assert.Equal(t, int64(4096), aws.ToInt64(objects[1].Size))
}

func TestDelete(t *testing.T) {
	var deleted string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Delete(context.Background(), "alerts-backup-2026-01-01-040000.db.gz"))
	assert.Equal(t, "/backups/alerts-backup-2026-01-01-040000.db.gz", deleted)
}

func TestDelete_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	})

	err := client.Delete(context.Background(), "alerts-backup-x.db.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alerts-backup-x.db.gz")
}
