package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalArchive(t *testing.T) {
	ctx := context.Background()
	a, err := NewLocalArchive(t.TempDir(), "http://localhost:8080/archives/")
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC) }

	key := "closings/2026/2026-03-1a2b3c4d.json"
	require.NoError(t, a.Upload(ctx, key, []byte(`{"period":"2026-03"}`), "application/json"))
	require.NoError(t, a.Upload(ctx, key, []byte(`{"period":"2026-03","rows":2}`), "application/json"))

	data, err := a.Read(key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"period":"2026-03","rows":2}`, string(data))

	u, expiresAt, err := a.GenerateDownloadURL(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/archives/"+key+"?expires=2026-04-01T09%3A00%3A00Z", u)
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), expiresAt)

	t.Run("missing archive", func(t *testing.T) {
		_, _, err := a.GenerateDownloadURL(ctx, "closings/2026/2026-02-00000000.json", 0)
		assert.Error(t, err)
	})

	t.Run("keys cannot escape the directory", func(t *testing.T) {
		assert.Error(t, a.Upload(ctx, "../outside.json", nil, ""))
		assert.Error(t, a.Upload(ctx, "/etc/passwd", nil, ""))
		assert.ErrorIs(t, a.Upload(ctx, "", nil, ""), ErrEmptyKey)
	})
}

func TestNewArchive(t *testing.T) {
	ctx := context.Background()

	a, err := NewArchive(ctx, config.StorageConfig{Provider: "local", LocalDir: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LocalArchive{}, a)

	_, err = NewArchive(ctx, config.StorageConfig{Provider: "gcs"}, zap.NewNop())
	assert.ErrorContains(t, err, `unknown storage provider "gcs"`)

	_, err = NewArchive(ctx, config.StorageConfig{Provider: "s3"}, zap.NewNop())
	assert.ErrorContains(t, err, "bucket is required")
}

func TestNewS3Archive_Validation(t *testing.T) {
	ctx := context.Background()
	cases := map[string]struct {
		cfg  config.StorageConfig
		want string
	}{
		"bucket":     {config.StorageConfig{AccessKey: "k", SecretKey: "s"}, "bucket is required"},
		"access key": {config.StorageConfig{Bucket: "b", SecretKey: "s"}, "access key is required"},
		"secret key": {config.StorageConfig{Bucket: "b", AccessKey: "k"}, "secret key is required"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewS3Archive(ctx, tc.cfg, zap.NewNop())
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "", endpointURL("", true))
	assert.Equal(t, "http://minio:9000", endpointURL("minio:9000", false))
	assert.Equal(t, "https://minio:9000", endpointURL("minio:9000", true))
	assert.Equal(t, "http://minio:9000", endpointURL("http://minio:9000", true))
}

// fakeS3 answers just enough of the S3 REST API for path-style requests
type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)
	bucket := parts[0]
	switch {
	case len(parts) == 1 && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.buckets[bucket] = true
	case len(parts) == 2 && r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[bucket+"/"+parts[1]] = body
		f.types[bucket+"/"+parts[1]] = r.Header.Get("Content-Type")
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func TestS3Archive(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	a, err := NewS3Archive(ctx, config.StorageConfig{
		Endpoint:          srv.URL,
		Bucket:            "stock-archives",
		AccessKey:         "minio",
		SecretKey:         "minio-secret",
		UsePathStyle:      true,
		PresignExpiration: 10 * time.Minute,
	}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, a.EnsureBucket(ctx))
	assert.True(t, fake.buckets["stock-archives"])
	require.NoError(t, a.EnsureBucket(ctx))

	key := "closings/2026/2026-03-1a2b3c4d.json"
	require.NoError(t, a.Upload(ctx, key, []byte(`{"rows":2}`), "application/json"))
	assert.Equal(t, `{"rows":2}`, string(fake.objects["stock-archives/"+key]))
	assert.Equal(t, "application/json", fake.types["stock-archives/"+key])

	u, expiresAt, err := a.GenerateDownloadURL(ctx, key, 0)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, srv.URL+"/stock-archives/"+key), u)
	assert.Contains(t, u, "X-Amz-Expires=600")
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	_, _, err = a.GenerateDownloadURL(ctx, "", 0)
	assert.ErrorIs(t, err, ErrEmptyKey)
}
