package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/assetvault/internal/common"
	"github.com/dkovalev/assetvault/internal/hashx"
	"github.com/dkovalev/assetvault/internal/logging"
	"github.com/dkovalev/assetvault/internal/server/blob"
	"github.com/dkovalev/assetvault/internal/server/repositories/repomanager"
)

func newAssetService(t *testing.T) (*AssetService, *fakeBlobStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	m := repomanager.NewInMemoryRepositoryManager()
	blobs := newFakeBlobStore()
	return NewAssetService(db, m, blobs, logger), blobs, mock
}

func digestOf(t *testing.T, b []byte) string {
	t.Helper()
	d, err := hashx.Sum(context.Background(), hashx.NewBytesSource(b), hashx.Options{})
	require.NoError(t, err)
	return d
}

func TestAssetService_UploadStoresBlobAndRow(t *testing.T) {
	ctx := context.Background()
	svc, blobs, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	payload := []byte("frames of a rendered clip")
	asset, err := svc.Upload(ctx, "u-1", UploadParams{
		Body:       bytes.NewReader(payload),
		Name:       "clip.mp4",
		Kind:       "video",
		ProviderID: "pixverse",
	})
	require.NoError(t, err)

	want := digestOf(t, payload)
	assert.Equal(t, want, asset.SHA256)
	assert.EqualValues(t, len(payload), asset.Size)
	assert.Equal(t, []string{"pixverse"}, asset.Providers)
	assert.Equal(t, blob.StorageKey("u-1", want), asset.StorageKey)
	assert.Equal(t, payload, blobs.objects[asset.StorageKey])
}

func TestAssetService_UploadSameBytesLandsOnSameRow(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	payload := []byte("identical bytes")

	first, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader(payload), Name: "a.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)

	second, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader(payload), Name: "b.mp4", Kind: "video", ProviderID: "runway",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.ElementsMatch(t, []string{"pixverse", "runway"}, second.Providers)
	// the original row keeps its name
	assert.Equal(t, "a.mp4", second.Name)
}

func TestAssetService_UploadIsolatedPerUser(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	payload := []byte("shared bytes, separate owners")

	a, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader(payload), Name: "a.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)

	b, err := svc.Upload(ctx, "u-2", UploadParams{
		Body: bytes.NewReader(payload), Name: "a.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)

	_, err = svc.Check(ctx, "u-1", a.SHA256)
	require.NoError(t, err)
	_, err = svc.Check(ctx, "u-3", a.SHA256)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAssetService_UploadDigestMismatchRejected(t *testing.T) {
	ctx := context.Background()
	svc, blobs, _ := newAssetService(t)

	_, err := svc.Upload(ctx, "u-1", UploadParams{
		Body:       bytes.NewReader([]byte("actual bytes")),
		Name:       "clip.mp4",
		Kind:       "video",
		SHA256:     "0000000000000000000000000000000000000000000000000000000000000000",
		ProviderID: "pixverse",
	})
	require.ErrorIs(t, err, common.ErrUploadRejected)
	assert.Empty(t, blobs.objects)
}

func TestAssetService_UploadRequiresNameAndProvider(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAssetService(t)

	_, err := svc.Upload(ctx, "u-1", UploadParams{Body: bytes.NewReader([]byte("x")), Kind: "video", ProviderID: "pixverse"})
	require.ErrorIs(t, err, common.ErrUploadRejected)

	_, err = svc.Upload(ctx, "u-1", UploadParams{Body: bytes.NewReader([]byte("x")), Name: "clip.mp4", Kind: "video"})
	require.ErrorIs(t, err, common.ErrUploadRejected)
}

func TestAssetService_CheckPopulatesProviders(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	payload := []byte("checkable clip")
	uploaded, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader(payload), Name: "clip.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)

	got, err := svc.Check(ctx, "u-1", uploaded.SHA256)
	require.NoError(t, err)
	assert.Equal(t, uploaded.ID, got.ID)
	assert.Equal(t, []string{"pixverse"}, got.Providers)
	assert.True(t, got.HasProvider("pixverse"))
}

func TestAssetService_LinkAddsProviderWithoutBytes(t *testing.T) {
	ctx := context.Background()
	svc, blobs, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	uploaded, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader([]byte("linkable clip")), Name: "clip.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)
	storedBefore := len(blobs.objects)

	linked, err := svc.Link(ctx, "u-1", uploaded.ID, "runway")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pixverse", "runway"}, linked.Providers)
	assert.Equal(t, storedBefore, len(blobs.objects))
}

func TestAssetService_LinkEnforcesOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, mock := newAssetService(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	uploaded, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader([]byte("private clip")), Name: "clip.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.NoError(t, err)

	_, err = svc.Link(ctx, "u-2", uploaded.ID, "runway")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestAssetService_UploadBlobFailure(t *testing.T) {
	ctx := context.Background()
	svc, blobs, _ := newAssetService(t)
	blobs.putErr = errors.New("storage offline")

	_, err := svc.Upload(ctx, "u-1", UploadParams{
		Body: bytes.NewReader([]byte("x")), Name: "clip.mp4", Kind: "video", ProviderID: "pixverse",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage offline")
}
