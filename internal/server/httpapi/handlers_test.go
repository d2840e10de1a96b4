package httpapi

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/assetvault/internal/client/models"
	"github.com/dkovalev/assetvault/internal/client/registry"
	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/hashx"
	"github.com/dkovalev/assetvault/internal/logging"
	"github.com/dkovalev/assetvault/internal/server/config"
	"github.com/dkovalev/assetvault/internal/server/repositories/repomanager"
	"github.com/dkovalev/assetvault/internal/server/services"
)

type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memBlobStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	return nil
}

// newTestStack spins up the full router on in-memory repositories and returns
// a registry client pointed at it. uploads is how many transactional uploads
// the test intends to perform.
func newTestStack(t *testing.T, uploads int) (*registry.HTTPClient, *memBlobStore) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for i := 0; i < uploads; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	cfg := &config.Config{
		SecretKey:             "unit-secret",
		TokenValidityDuration: time.Minute,
		MaxUploadBytes:        1 << 20,
	}
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	m := repomanager.NewInMemoryRepositoryManager()
	blobs := &memBlobStore{objects: map[string][]byte{}}

	us := services.NewUserService(db, m, cfg)
	as := services.NewAssetService(db, m, blobs, logger)

	srv := httptest.NewServer(NewServer(us, as, cfg, logger).Routes())
	t.Cleanup(srv.Close)

	return registry.NewHTTPClient(srv.URL, srv.Client()), blobs
}

func digestOf(t *testing.T, b []byte) string {
	t.Helper()
	d, err := hashx.Sum(context.Background(), hashx.NewBytesSource(b), hashx.Options{})
	require.NoError(t, err)
	return d
}

func TestAPI_RegisterLoginUploadCheckLink(t *testing.T) {
	ctx := context.Background()
	client, blobs := newTestStack(t, 1)

	require.NoError(t, client.Register(ctx, "alice", "correct horse battery"))
	require.NoError(t, client.Login(ctx, "alice", "correct horse battery"))
	require.NotEmpty(t, client.Token())

	payload := []byte("bytes of a finished clip")
	digest := digestOf(t, payload)

	// nothing on the server yet
	check, err := client.Check(ctx, digest, "pixverse")
	require.NoError(t, err)
	assert.False(t, check.Exists)

	uploaded, err := client.Upload(ctx, registry.UploadRequest{
		Body:       hashx.NewBytesSource(payload),
		ProviderID: "pixverse",
		Name:       "clip.mp4",
		Kind:       models.KindVideo,
		SHA256:     digest,
	})
	require.NoError(t, err)
	assert.Equal(t, digest, uploaded.SHA256)
	assert.Equal(t, payload, blobs.objects["blobs/u-1/"+digest])

	check, err = client.Check(ctx, digest, "pixverse")
	require.NoError(t, err)
	assert.True(t, check.Exists)
	assert.Equal(t, uploaded.AssetID, check.AssetID)
	assert.Equal(t, "pixverse", check.ProviderID)
	assert.True(t, check.HasProvider("pixverse"))

	linked, err := client.Link(ctx, uploaded.AssetID, "runway")
	require.NoError(t, err)
	assert.Equal(t, uploaded.AssetID, linked.AssetID)

	check, err = client.Check(ctx, digest, "runway")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pixverse", "runway"}, check.UploadedToProviders)
}

func TestAPI_RequiresAuth(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestStack(t, 0)

	_, err := client.Check(ctx, "abc", "")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	_, err = client.Upload(ctx, registry.UploadRequest{
		Body:       hashx.NewBytesSource([]byte("x")),
		ProviderID: "pixverse",
		Name:       "clip.mp4",
		Kind:       models.KindVideo,
	})
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAPI_DigestMismatchRejected(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestStack(t, 0)

	require.NoError(t, client.Register(ctx, "alice", "correct horse battery"))
	require.NoError(t, client.Login(ctx, "alice", "correct horse battery"))

	_, err := client.Upload(ctx, registry.UploadRequest{
		Body:       hashx.NewBytesSource([]byte("actual bytes")),
		ProviderID: "pixverse",
		Name:       "clip.mp4",
		Kind:       models.KindVideo,
		SHA256:     "0000000000000000000000000000000000000000000000000000000000000000",
	})
	require.ErrorIs(t, err, common.ErrUploadRejected)
}

func TestAPI_RegisterValidationAndConflict(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestStack(t, 0)

	err := client.Register(ctx, "alice", "short")
	require.Error(t, err)

	require.NoError(t, client.Register(ctx, "alice", "correct horse battery"))
	err = client.Register(ctx, "alice", "correct horse battery")
	require.Error(t, err)
}

func TestAPI_LinkUnknownAssetIs404(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestStack(t, 0)

	require.NoError(t, client.Register(ctx, "alice", "correct horse battery"))
	require.NoError(t, client.Login(ctx, "alice", "correct horse battery"))

	_, err := client.Link(ctx, 9999, "runway")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset not found")
}
