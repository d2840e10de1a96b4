package models

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkovalev/assetvault/internal/common"
)

func TestSource_JSONRoundTrip(t *testing.T) {
	captured := time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		source Source
	}{
		{"folder", FolderSource{FolderID: "f-1", RelativePath: "shots/clip.mp4", HandleKey: "/media/library"}},
		{"file", FileSource{FileName: "drop.png", CaptureMethod: "drag-drop", CapturedAt: captured}},
		{"url", URLSource{SourceURL: "https://example.com/a.jpg", SourceSite: "example.com", ImportedAt: captured}},
		{"provider", ProviderSource{ProviderID: "pixverse", ProviderAssetID: "px-9", CDNURL: "https://cdn.example.com/px-9", CapturedAt: captured}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := MarshalSource(tc.source)
			require.NoError(t, err)

			got, err := UnmarshalSource(data)
			require.NoError(t, err)
			assert.Equal(t, tc.source, got)
			assert.Equal(t, tc.source.Type(), got.Type())
		})
	}
}

func TestUnmarshalSource_UnknownType(t *testing.T) {
	_, err := UnmarshalSource([]byte(`{"type":"carrier-pigeon"}`))
	require.Error(t, err)
}

func TestFileSource_DataNotPersisted(t *testing.T) {
	src := FileSource{FileName: "drop.png", CaptureMethod: "paste", Data: []byte{1, 2, 3}}

	data, err := MarshalSource(src)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Data")

	got, err := UnmarshalSource(data)
	require.NoError(t, err)

	// After a round trip the session bytes are gone; opening degrades to
	// source-unavailable instead of silently hashing nothing.
	_, err = got.Open(context.Background(), OpenOptions{})
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestFolderSource_Open(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	content := []byte("folder bytes")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "a.png"), content, 0o644))

	src := FolderSource{FolderID: "f-1", RelativePath: "sub/a.png", HandleKey: dir}
	bs, err := src.Open(context.Background(), OpenOptions{})
	require.NoError(t, err)
	defer bs.Close()

	require.Equal(t, int64(len(content)), bs.Size())
	got, err := io.ReadAll(bs)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestFolderSource_Open_Missing(t *testing.T) {
	src := FolderSource{FolderID: "f-1", RelativePath: "gone.png", HandleKey: t.TempDir()}
	_, err := src.Open(context.Background(), OpenOptions{})
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestURLSource_Open(t *testing.T) {
	content := []byte("remote bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer srv.Close()

	src := URLSource{SourceURL: srv.URL, SourceSite: "test"}
	bs, err := src.Open(context.Background(), OpenOptions{HTTPClient: srv.Client()})
	require.NoError(t, err)
	defer bs.Close()

	got, err := io.ReadAll(bs)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestProviderSource_Open_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	src := ProviderSource{ProviderID: "pixverse", ProviderAssetID: "px-1", CDNURL: srv.URL}
	_, err := src.Open(context.Background(), OpenOptions{HTTPClient: srv.Client()})
	require.ErrorIs(t, err, common.ErrSourceUnavailable)
}

func TestKindFromName(t *testing.T) {
	tests := []struct {
		name string
		want AssetKind
	}{
		{"clip.MP4", KindVideo},
		{"photo.jpeg", KindImage},
		{"notes.txt", KindOther},
		{"noext", KindOther},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, KindFromName(tc.name), tc.name)
	}
}

func TestHashValid(t *testing.T) {
	mod := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	c := &AssetCandidate{
		SHA256:           "abc",
		SHA256ComputedAt: mod.Add(time.Hour),
		Size:             100,
		LastModified:     mod,
	}

	assert.True(t, c.HashValid(100, mod))
	assert.False(t, c.HashValid(101, mod), "size drift invalidates")
	assert.False(t, c.HashValid(100, mod.Add(time.Minute)), "mtime drift invalidates")
	assert.True(t, c.HashValid(SizeUnknown, time.Time{}), "unknown live values trust the record")

	empty := &AssetCandidate{}
	assert.False(t, empty.HashValid(100, mod))
}
