package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/config"
	"github.com/cyterat/deepstate-map-data/database"
	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/metrics"
	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/scraper"
)

var (
	day1 = time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2024, 7, 9, 0, 0, 0, 0, time.UTC)
)

func square(lon, lat, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{lon, lat}, {lon + size, lat}, {lon + size, lat + size}, {lon, lat + size}, {lon, lat},
	}}
}

func payload(t *testing.T, poly orb.Polygon) []byte {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(poly)
	f.Properties["name"] = "ua /// Occupied /// ru"
	fc.Append(f)
	data, err := fc.MarshalJSON()
	require.NoError(t, err)
	return []byte(`{"id":1,"map":` + string(data) + `}`)
}

// source serves whatever body is currently set.
type source struct {
	mu     sync.Mutex
	body   []byte
	status int
	hits   int
}

func (s *source) set(body []byte, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body, s.status = body, status
}

func (s *source) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	w.WriteHeader(s.status)
	w.Write(s.body)
}

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, localPath, contentType string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, filepath.Base(localPath)+" "+contentType)
	return filepath.Base(localPath), nil
}

type fakeMetrics struct {
	pushed []metrics.RunStats
}

func (m *fakeMetrics) Push(ctx context.Context, stats metrics.RunStats) error {
	m.pushed = append(m.pushed, stats)
	return nil
}

type fixture struct {
	src       *source
	cfg       *config.Config
	updater   *Updater
	store     *database.Store
	publisher *fakePublisher
	metrics   *fakeMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	src := &source{status: http.StatusOK}
	srv := httptest.NewServer(src)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source.URL = srv.URL
	cfg.Source.MaxRetries = 1
	cfg.Source.RetryDelay = time.Millisecond
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Storage.Archive = filepath.Join(dir, config.DefaultArchivePath)
	cfg.Storage.Index = filepath.Join(dir, config.DefaultIndexPath)

	store, err := database.Open(context.Background(),
		config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "mirror.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &fakePublisher{}
	m := &fakeMetrics{}
	u := &Updater{
		Fetcher:      scraper.NewFetcher(cfg, logger),
		Consolidator: archive.NewConsolidator(cfg.Storage.Archive, logger),
		DataDir:      cfg.Storage.DataDir,
		IndexPath:    cfg.Storage.Index,
		Mirror:       store,
		Publisher:    pub,
		Metrics:      m,
		Logger:       logger,
		Now:          func() time.Time { return day2.Add(6 * time.Hour) },
	}
	return &fixture{src: src, cfg: cfg, updater: u, store: store, publisher: pub, metrics: m}
}

func TestUpdateAppendsThenNoOps(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.src.set(payload(t, square(35, 47, 1)), http.StatusOK)

	res, err := fx.updater.Update(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAppended, res.Outcome)
	assert.Equal(t, 0, res.Consolidation.Record.ID)
	assert.FileExists(t, res.SnapshotPath)
	assert.FileExists(t, fx.cfg.Storage.Index)

	// Same geometry on the next day leaves the archive alone.
	res, err = fx.updater.Update(ctx, day2)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnchanged, res.Outcome)
	assert.Equal(t, 1, res.Consolidation.Total)

	a, err := archive.Load(fx.cfg.Storage.Archive)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())

	maxID, err := fx.store.MaxRecordID(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, maxID)

	runs, err := fx.store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, []string{
		config.DefaultArchivePath + " application/gzip",
		"deepstatemap_data_2024-07-08.geojson application/geo+json",
		"deepstatemap_data_2024-07-09.geojson application/geo+json",
	}, fx.publisher.published)

	require.Len(t, fx.metrics.pushed, 2)
	assert.True(t, fx.metrics.pushed[0].Appended)
	assert.False(t, fx.metrics.pushed[1].Appended)
	assert.Equal(t, 1, fx.metrics.pushed[1].Records)
}

func TestUpdateAppendsChangedGeometry(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	fx.src.set(payload(t, square(35, 47, 1)), http.StatusOK)
	_, err := fx.updater.Update(ctx, day1)
	require.NoError(t, err)

	fx.src.set(payload(t, square(35, 47, 1.5)), http.StatusOK)
	res, err := fx.updater.Update(ctx, day2)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAppended, res.Outcome)
	assert.Equal(t, 1, res.Consolidation.Record.ID)
	assert.Equal(t, 2, res.Consolidation.Total)

	rec, err := fx.store.LoadRecordGeometry(ctx, 1)
	require.NoError(t, err)
	assert.True(t, geometry.Equal(orb.MultiPolygon{square(35, 47, 1.5)}, rec.Geometry))
}

func TestUpdateSkipsOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.src.set([]byte("unavailable"), http.StatusServiceUnavailable)

	res, err := fx.updater.Update(ctx, day1)
	var fetchErr *scraper.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, models.OutcomeSkipped, res.Outcome)

	assert.NoFileExists(t, fx.cfg.Storage.Archive)
	assert.NoFileExists(t, res.SnapshotPath)
	assert.Empty(t, fx.publisher.published)

	runs, err := fx.store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.OutcomeSkipped, runs[0].Outcome)
	assert.NotEmpty(t, runs[0].Message)
}

func TestUpdateRefusesCorruptArchive(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.src.set(payload(t, square(35, 47, 1)), http.StatusOK)

	garbage := []byte("not gzip at all")
	require.NoError(t, os.WriteFile(fx.cfg.Storage.Archive, garbage, 0o644))

	res, err := fx.updater.Update(ctx, day1)
	var corrupt *archive.CorruptError
	require.ErrorAs(t, err, &corrupt)
	assert.Equal(t, models.OutcomeFailed, res.Outcome)

	data, err := os.ReadFile(fx.cfg.Storage.Archive)
	require.NoError(t, err)
	assert.Equal(t, garbage, data)
	require.Len(t, fx.metrics.pushed, 1)
	assert.Equal(t, models.OutcomeFailed, fx.metrics.pushed[0].Outcome)
}

func TestConsolidateStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	_, err := fx.updater.Consolidate(ctx, day1)
	require.ErrorIs(t, err, scraper.ErrSnapshotMissing)

	snap := &models.DailySnapshot{Date: day1, Geometry: orb.MultiPolygon{square(35, 47, 1)}}
	_, _, err = scraper.WriteSnapshot(fx.cfg.Storage.DataDir, snap)
	require.NoError(t, err)

	res, err := fx.updater.Consolidate(ctx, day1)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAppended, res.Outcome)
	assert.Zero(t, fx.src.hits)
}

func TestSinkFailuresDoNotFailRun(t *testing.T) {
	fx := newFixture(t)
	fx.publisher.err = errors.New("bucket gone")
	fx.src.set(payload(t, square(35, 47, 1)), http.StatusOK)

	res, err := fx.updater.Update(context.Background(), day1)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAppended, res.Outcome)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&scraper.FetchError{URL: "u", Attempts: 3, Err: errors.New("timeout")}, models.OutcomeSkipped},
		{&geometry.ValidationError{Reason: "empty"}, models.OutcomeSkipped},
		{fmt.Errorf("read: %w", scraper.ErrSnapshotMissing), models.OutcomeSkipped},
		{archive.ErrDateNotAfter, models.OutcomeSkipped},
		{&archive.CorruptError{Path: "a", Err: errors.New("bad")}, models.OutcomeFailed},
		{fmt.Errorf("save: %w", archive.ErrWriteFailed), models.OutcomeFailed},
		{errors.New("something else"), models.OutcomeFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}
