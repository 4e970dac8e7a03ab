package way_nav

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// flakySource fails the first failures loads, then returns records.
type flakySource struct {
	mu       sync.Mutex
	failures int
	calls    int
	records  []TargetRecord
}

func (s *flakySource) Load(ctx context.Context) ([]TargetRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("backend unavailable")
	}
	return s.records, nil
}

func heading(deg float64) *float64 { return &deg }

func sampleRecords() []TargetRecord {
	return []TargetRecord{
		{Name: "Gate", Building: "Main", FloorNumber: 0, Position: Point{X: 10, Z: 5}},
		{Name: "Lab", Building: "Main", FloorNumber: 1, Position: Point{X: -4, Y: 4, Z: 2}, Heading: heading(90)},
		{Name: "Roof", Building: "Main", FloorNumber: 7, Position: Point{X: 1, Y: 20, Z: 1}},
		{Name: "  ", Building: "Main"},
	}
}

func testCatalogConfig() CatalogConfig {
	return CatalogConfig{MaxRetries: 3, RetryInterval: time.Millisecond, Floors: map[string]int{"main": 3}}
}

type recordedEvent struct {
	observer int
	kind     string
}

func TestCatalog_RefreshNotifiesInOrder(t *testing.T) {
	src := &flakySource{records: sampleRecords()}
	c := NewCatalog(testCatalogConfig(), src, zaptest.NewLogger(t))

	var events []recordedEvent
	for i := 0; i < 2; i++ {
		i := i
		c.Subscribe(ObserverFuncs{
			DataReady:      func([]TargetRecord) { events = append(events, recordedEvent{i, "ready"}) },
			LoadingChanged: func(l bool) { events = append(events, recordedEvent{i, map[bool]string{true: "loading", false: "idle"}[l]}) },
		})
	}

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, []recordedEvent{
		{0, "loading"}, {1, "loading"},
		{0, "idle"}, {1, "idle"},
		{0, "ready"}, {1, "ready"},
	}, events)
	assert.False(t, c.Loading())
}

func TestCatalog_NormalizesRecords(t *testing.T) {
	c := NewCatalog(testCatalogConfig(), &flakySource{records: sampleRecords()}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	recs := c.Records()
	require.Len(t, recs, 3, "unnamed record dropped")
	roof, ok := c.Lookup("Roof")
	require.True(t, ok)
	assert.Equal(t, 2, roof.FloorNumber, "clamped into the building's floors")
}

func TestCatalog_StrictFloorsDrops(t *testing.T) {
	cfg := testCatalogConfig()
	cfg.StrictFloors = true
	c := NewCatalog(cfg, &flakySource{records: sampleRecords()}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	_, ok := c.Lookup("Roof")
	assert.False(t, ok)
	assert.Len(t, c.Records(), 2)
}

func TestCatalog_RetriesWithBackoff(t *testing.T) {
	src := &flakySource{failures: 2, records: sampleRecords()}
	c := NewCatalog(testCatalogConfig(), src, zaptest.NewLogger(t))

	require.NoError(t, c.Refresh(context.Background()))
	assert.Equal(t, 3, src.calls)
	assert.Len(t, c.Records(), 3)
}

func TestCatalog_ErrorAfterRetries(t *testing.T) {
	src := &flakySource{failures: 100}
	c := NewCatalog(testCatalogConfig(), src, zaptest.NewLogger(t))

	var gotErr error
	c.Subscribe(ObserverFuncs{Error: func(err error) { gotErr = err }})

	err := c.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 4, src.calls, "one attempt plus three retries")
	assert.Equal(t, err, gotErr)
	assert.False(t, c.Loading())
}

func TestCatalog_LookupAndClosest(t *testing.T) {
	c := NewCatalog(testCatalogConfig(), &flakySource{records: sampleRecords()}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))

	rec, ok := c.Lookup("lab")
	require.True(t, ok)
	assert.Equal(t, "Lab", rec.Name)

	near, ok := c.Closest("Gait")
	require.True(t, ok)
	assert.Equal(t, "Gate", near)
}

func TestClampFloor(t *testing.T) {
	assert.Equal(t, 0, ClampFloor(-2, 3))
	assert.Equal(t, 1, ClampFloor(1, 3))
	assert.Equal(t, 2, ClampFloor(9, 3))
	assert.Equal(t, 0, ClampFloor(4, 0))
}

func TestCatalogResolver(t *testing.T) {
	c := NewCatalog(testCatalogConfig(), &flakySource{records: sampleRecords()}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))
	r := CatalogResolver{Catalog: c}

	for _, id := range []string{"Lab", "Target(Lab)"} {
		pose, err := r.Resolve(id)
		require.NoError(t, err, id)
		assertVec(t, mgl64.Vec3{-4, 4, 2}, pose.Position)
		assert.InDelta(t, 90, SignedAngle(WorldForward, pose.Forward), 1e-9)
		assertVec(t, WorldUp, pose.Up)
	}

	pose, err := r.Resolve("Gate")
	require.NoError(t, err)
	assertVec(t, mgl64.Vec3{}, pose.Forward)

	_, err = r.Resolve("Gait")
	assert.ErrorIs(t, err, ErrTargetNotFound)
	assert.ErrorContains(t, err, `closest known "Gate"`)

	_, err = CatalogResolver{}.Resolve("Gate")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

const testCatalogYAML = `
targets:
  - name: Gate
    building: Main
    floor_number: 0
    position: {x: 10, y: 0, z: 5}
  - name: Lab
    building: Main
    floor_number: 1
    position: {x: -4, y: 4, z: 2}
    heading: 90
    image: lab.png
`

func TestFileSource_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))

	recs, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Gate", recs[0].Name)
	assert.Nil(t, recs[0].Heading)
	require.NotNil(t, recs[1].Heading)
	assert.Equal(t, 90.0, *recs[1].Heading)
	require.NotNil(t, recs[1].Image)
	assert.Equal(t, "lab.png", *recs[1].Image)
}

func TestFileSource_Missing(t *testing.T) {
	_, err := FileSource{Path: filepath.Join(t.TempDir(), "nope.yaml")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSQLSource_RoundTrip(t *testing.T) {
	src, err := OpenSQLiteSource(filepath.Join(t.TempDir(), "targets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	ctx := context.Background()
	img := "lab.png"
	require.NoError(t, src.Insert(ctx, TargetRecord{Name: "Lab", Building: "Main", FloorNumber: 1, Position: Point{X: -4, Y: 4, Z: 2}, Heading: heading(90), Image: &img}))
	require.NoError(t, src.Insert(ctx, TargetRecord{Name: "Gate", Building: "Main", Position: Point{X: 10, Z: 5}}))

	c := NewCatalog(testCatalogConfig(), src, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(ctx))

	recs := c.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Gate", recs[0].Name)
	assert.Nil(t, recs[0].Heading)
	assert.Equal(t, "Lab", recs[1].Name)
	require.NotNil(t, recs[1].Heading)
	assert.Equal(t, 90.0, *recs[1].Heading)
	assert.Equal(t, "lab.png", *recs[1].Image)
}

func TestWatchFile_RefreshesOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: []\n"), 0o644))

	c := NewCatalog(testCatalogConfig(), FileSource{Path: path}, zaptest.NewLogger(t))
	require.NoError(t, c.Refresh(context.Background()))
	require.Empty(t, c.Records())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, path, c, zaptest.NewLogger(t)) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(testCatalogYAML), 0o644))

	assert.Eventually(t, func() bool { return len(c.Records()) == 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
