package publish

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyterat/deepstate-map-data/config"
)

type storedObject struct {
	body        []byte
	contentType string
}

// fakeS3 answers PutObject requests for path-style URLs and keeps the bodies.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]storedObject
	status  int
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		body := `<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`
		return &http.Response{StatusCode: f.status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: http.StatusNotImplemented, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	f.objects[strings.TrimPrefix(req.URL.Path, "/")] = storedObject{body: body, contentType: req.Header.Get("Content-Type")}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newTestPublisher(t *testing.T, fake *fakeS3, prefix string) *Publisher {
	t.Helper()
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: fake}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.RetryMaxAttempts = 1
	})
	return NewWithClient(client, "deepstate", prefix, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublish(t *testing.T) {
	fake := &fakeS3{objects: map[string]storedObject{}}
	p := newTestPublisher(t, fake, "/history/")

	local := filepath.Join(t.TempDir(), "deepstate-map-data.geojson.gz")
	payload := []byte("compressed archive bytes")
	require.NoError(t, os.WriteFile(local, payload, 0644))

	key, err := p.Publish(context.Background(), local, ContentTypeGzip)
	require.NoError(t, err)
	assert.Equal(t, "history/deepstate-map-data.geojson.gz", key)

	obj, ok := fake.objects["deepstate/history/deepstate-map-data.geojson.gz"]
	require.True(t, ok, "object stored under bucket/key")
	assert.True(t, bytes.Contains(obj.body, payload))
	assert.Equal(t, ContentTypeGzip, obj.contentType)
}

func TestPublishErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		p := newTestPublisher(t, &fakeS3{objects: map[string]storedObject{}}, "")
		_, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "nope.gz"), ContentTypeGzip)
		assert.ErrorContains(t, err, "failed to open")
	})

	t.Run("denied", func(t *testing.T) {
		p := newTestPublisher(t, &fakeS3{objects: map[string]storedObject{}, status: http.StatusForbidden}, "")
		local := filepath.Join(t.TempDir(), "a.geojson")
		require.NoError(t, os.WriteFile(local, []byte("{}"), 0644))
		_, err := p.Publish(context.Background(), local, ContentTypeGeoJSON)
		assert.ErrorContains(t, err, "failed to upload")
	})
}

func TestKey(t *testing.T) {
	p := NewWithClient(nil, "b", "", nil)
	assert.Equal(t, "file.gz", p.Key("/tmp/x/file.gz"))
	p = NewWithClient(nil, "b", "a/b/", nil)
	assert.Equal(t, "a/b/file.gz", p.Key("file.gz"))
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), config.PublishConfig{Region: "eu-central-1"}, nil)
	assert.ErrorContains(t, err, "bucket required")
}
