package way_nav

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	_ "modernc.org/sqlite"
)

// catalogFile is the on-disk YAML layout.
type catalogFile struct {
	Targets []TargetRecord `yaml:"targets"`
}

// FileSource loads targets from a YAML file.
type FileSource struct {
	Path string
}

// Load reads and parses the catalog file.
func (s FileSource) Load(ctx context.Context) ([]TargetRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return f.Targets, nil
}

// WatchFile refreshes catalog whenever path is written or replaced. It blocks
// until ctx is done.
func WatchFile(ctx context.Context, path string, catalog *Catalog, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Editors often replace files, so watch the directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	clean := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != clean || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			logger.Info("catalog file changed", zap.String("path", ev.Name))
			if err := catalog.Refresh(ctx); err != nil {
				logger.Warn("catalog reload failed", zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watch error", zap.Error(err))
		}
	}
}

// targetsSchema is the table SQLSource reads.
const targetsSchema = `CREATE TABLE IF NOT EXISTS targets (
	name TEXT PRIMARY KEY,
	building TEXT NOT NULL DEFAULT '',
	floor_number INTEGER NOT NULL DEFAULT 0,
	x REAL NOT NULL,
	y REAL NOT NULL,
	z REAL NOT NULL,
	heading REAL,
	image TEXT
)`

// SQLSource loads targets from a SQL database.
type SQLSource struct {
	DB *sql.DB
}

// OpenSQLiteSource opens (and if needed creates) a SQLite catalog.
func OpenSQLiteSource(path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(targetsSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create targets table: %w", err)
	}
	return &SQLSource{DB: db}, nil
}

// Close releases the database handle.
func (s *SQLSource) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Insert upserts a record.
func (s *SQLSource) Insert(ctx context.Context, rec TargetRecord) error {
	var heading sql.NullFloat64
	if rec.Heading != nil {
		heading = sql.NullFloat64{Float64: *rec.Heading, Valid: true}
	}
	var image sql.NullString
	if rec.Image != nil {
		image = sql.NullString{String: *rec.Image, Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT OR REPLACE INTO targets (name, building, floor_number, x, y, z, heading, image)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.Building, rec.FloorNumber,
		rec.Position.X, rec.Position.Y, rec.Position.Z,
		heading, image,
	)
	return err
}

// Load reads all targets ordered by name.
func (s *SQLSource) Load(ctx context.Context) ([]TargetRecord, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name, building, floor_number, x, y, z, heading, image FROM targets ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TargetRecord
	for rows.Next() {
		var rec TargetRecord
		var heading sql.NullFloat64
		var image sql.NullString
		if err := rows.Scan(&rec.Name, &rec.Building, &rec.FloorNumber,
			&rec.Position.X, &rec.Position.Y, &rec.Position.Z, &heading, &image); err != nil {
			return nil, err
		}
		if heading.Valid {
			h := heading.Float64
			rec.Heading = &h
		}
		if image.Valid {
			img := image.String
			rec.Image = &img
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
