package way_nav

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Runtime owns the long-lived collaborators built from configuration.
type Runtime struct {
	Navigator *Navigator
	Catalog   *Catalog
	NavMesh   *NavMesh

	closers []func() error
}

// NewRuntime loads the nav mesh and catalog and wires the navigator. The
// catalog is optional; without one, markers cannot be resolved and
// destinations must be given as coordinates.
func NewRuntime(ctx context.Context, cfg AppConfig, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavMesh.Path == "" {
		return nil, fmt.Errorf("navmesh.path must be set")
	}
	mesh, err := LoadNavMesh(cfg.NavMesh.Path)
	if err != nil {
		return nil, fmt.Errorf("load nav mesh: %w", err)
	}
	rt := &Runtime{NavMesh: mesh}

	catalog, err := rt.openCatalog(ctx, cfg.Catalog, logger.Named("catalog"))
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Catalog = catalog

	deps := Collaborators{Surface: mesh, Pathfinder: mesh, Catalog: catalog}
	if catalog != nil {
		deps.Resolver = CatalogResolver{Catalog: catalog}
	}
	rt.Navigator = NewNavigator(cfg, deps, logger.Named("nav"))
	return rt, nil
}

func (rt *Runtime) openCatalog(ctx context.Context, cfg CatalogConfig, logger *zap.Logger) (*Catalog, error) {
	var source Source
	switch {
	case cfg.SQLitePath != "":
		sqlSource, err := OpenSQLiteSource(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, sqlSource.Close)
		source = sqlSource
	case cfg.Path != "":
		source = FileSource{Path: cfg.Path}
	default:
		logger.Info("no catalog configured")
		return nil, nil
	}

	catalog := NewCatalog(cfg, source, logger)
	if err := catalog.Refresh(ctx); err != nil {
		return nil, err
	}
	return catalog, nil
}

// Close releases catalog resources.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
