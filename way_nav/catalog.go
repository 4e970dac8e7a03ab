package way_nav

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// CatalogConfig controls catalog loading and record normalization.
type CatalogConfig struct {
	Path          string         `json:"path" mapstructure:"path"`
	SQLitePath    string         `json:"sqlite_path" mapstructure:"sqlite_path"`
	Watch         bool           `json:"watch" mapstructure:"watch"`
	MaxRetries    int            `json:"max_retries" mapstructure:"max_retries"`
	RetryInterval time.Duration  `json:"retry_interval" mapstructure:"retry_interval"`
	StrictFloors  bool           `json:"strict_floors" mapstructure:"strict_floors"`
	Floors        map[string]int `json:"floors" mapstructure:"floors"`
}

// Point is a serialized world position.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vec converts the point to a vector.
func (p Point) Vec() mgl64.Vec3 {
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// TargetRecord is a destination/marker entry from the catalog.
type TargetRecord struct {
	Name        string   `json:"name" yaml:"name"`
	Building    string   `json:"building" yaml:"building"`
	FloorNumber int      `json:"floor_number" yaml:"floor_number"`
	Position    Point    `json:"position" yaml:"position"`
	Heading     *float64 `json:"heading,omitempty" yaml:"heading,omitempty"`
	Image       *string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// Source loads catalog records from a backing store.
type Source interface {
	Load(ctx context.Context) ([]TargetRecord, error)
}

// Observer receives catalog events.
type Observer interface {
	OnDataReady(records []TargetRecord)
	OnLoadingChanged(loading bool)
	OnError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	DataReady      func(records []TargetRecord)
	LoadingChanged func(loading bool)
	Error          func(err error)
}

func (o ObserverFuncs) OnDataReady(records []TargetRecord) {
	if o.DataReady != nil {
		o.DataReady(records)
	}
}

func (o ObserverFuncs) OnLoadingChanged(loading bool) {
	if o.LoadingChanged != nil {
		o.LoadingChanged(loading)
	}
}

func (o ObserverFuncs) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// Catalog holds the current set of target records.
type Catalog struct {
	cfg    CatalogConfig
	source Source
	logger *zap.Logger

	mu        sync.RWMutex
	records   []TargetRecord
	byName    map[string]int
	observers []Observer
	loading   bool

	// refreshMu serializes refreshes so events are delivered per state change.
	refreshMu sync.Mutex
}

// NewCatalog constructs an empty catalog over source.
func NewCatalog(cfg CatalogConfig, source Source, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{cfg: cfg, source: source, logger: logger, byName: map[string]int{}}
}

// Subscribe registers an observer. Events are delivered in registration order.
func (c *Catalog) Subscribe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Refresh loads records from the source, retrying with exponential backoff.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.setLoading(true)

	var records []TargetRecord
	op := func() error {
		var err error
		records, err = c.source.Load(ctx)
		if err != nil {
			c.logger.Debug("catalog load attempt failed", zap.Error(err))
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if c.cfg.RetryInterval > 0 {
		policy.InitialInterval = c.cfg.RetryInterval
	}
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))

	c.setLoading(false)

	if err != nil {
		err = fmt.Errorf("load catalog: %w", err)
		c.logger.Error("catalog refresh failed", zap.Error(err))
		for _, o := range c.snapshotObservers() {
			o.OnError(err)
		}
		return err
	}

	normalized := c.normalize(records)
	byName := make(map[string]int, len(normalized))
	for i, rec := range normalized {
		if _, dup := byName[rec.Name]; dup {
			c.logger.Warn("duplicate catalog target, keeping first", zap.String("name", rec.Name))
			continue
		}
		byName[rec.Name] = i
	}

	c.mu.Lock()
	c.records = normalized
	c.byName = byName
	c.mu.Unlock()

	c.logger.Info("catalog loaded", zap.Int("targets", len(normalized)))
	out := c.Records()
	for _, o := range c.snapshotObservers() {
		o.OnDataReady(out)
	}
	return nil
}

// Records returns a copy of the loaded records.
func (c *Catalog) Records() []TargetRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TargetRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Loading reports whether a refresh is in progress.
func (c *Catalog) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Lookup finds a record by exact name, then case-insensitively.
func (c *Catalog) Lookup(name string) (TargetRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i, ok := c.byName[name]; ok {
		return c.records[i], true
	}
	for _, rec := range c.records {
		if strings.EqualFold(rec.Name, name) {
			return rec, true
		}
	}
	return TargetRecord{}, false
}

// Closest returns the known name with the smallest edit distance to name.
func (c *Catalog) Closest(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	best := ""
	bestDist := -1
	needle := strings.ToLower(name)
	for _, rec := range c.records {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(rec.Name))
		if bestDist < 0 || d < bestDist {
			best, bestDist = rec.Name, d
		}
	}
	return best, bestDist >= 0
}

func (c *Catalog) setLoading(loading bool) {
	c.mu.Lock()
	changed := c.loading != loading
	c.loading = loading
	c.mu.Unlock()
	if !changed {
		return
	}
	for _, o := range c.snapshotObservers() {
		o.OnLoadingChanged(loading)
	}
}

func (c *Catalog) snapshotObservers() []Observer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Observer, len(c.observers))
	copy(out, c.observers)
	return out
}

// normalize drops unnamed records and brings floor numbers into range.
func (c *Catalog) normalize(records []TargetRecord) []TargetRecord {
	out := make([]TargetRecord, 0, len(records))
	for _, rec := range records {
		rec.Name = strings.TrimSpace(rec.Name)
		if rec.Name == "" {
			c.logger.Warn("dropping catalog target without a name", zap.String("building", rec.Building))
			continue
		}
		floors, ok := c.floorCount(rec.Building)
		if ok && floors > 0 && (rec.FloorNumber < 0 || rec.FloorNumber >= floors) {
			if c.cfg.StrictFloors {
				c.logger.Warn("dropping catalog target with out-of-range floor",
					zap.String("name", rec.Name), zap.Int("floor", rec.FloorNumber), zap.Int("floors", floors))
				continue
			}
			clamped := ClampFloor(rec.FloorNumber, floors)
			c.logger.Warn("clamping catalog target floor",
				zap.String("name", rec.Name), zap.Int("floor", rec.FloorNumber), zap.Int("clamped", clamped))
			rec.FloorNumber = clamped
		}
		out = append(out, rec)
	}
	return out
}

// floorCount matches building names case-insensitively; config keys are
// lowercased by the loader.
func (c *Catalog) floorCount(building string) (int, bool) {
	if n, ok := c.cfg.Floors[building]; ok {
		return n, true
	}
	for name, n := range c.cfg.Floors {
		if strings.EqualFold(name, building) {
			return n, true
		}
	}
	return 0, false
}

// ClampFloor brings floor into [0, floors-1].
func ClampFloor(floor, floors int) int {
	if floors <= 0 || floor < 0 {
		return 0
	}
	if floor >= floors {
		return floors - 1
	}
	return floor
}
