// Package bake runs the offline pass: discover controller assets, flatten
// them and write the database.
package bake

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/milk9111/animdb/config"
	"github.com/milk9111/animdb/controller"
	"github.com/milk9111/animdb/database"
	"github.com/milk9111/animdb/flatten"
	"github.com/milk9111/animdb/source"
	"github.com/milk9111/animdb/table"
	"golang.org/x/sync/errgroup"
)

type Result struct {
	Output      string
	Controllers int
	// Skipped lists matched files that are not controller assets.
	Skipped  []string
	Written  bool
	Duration time.Duration
}

// Bake flattens every controller asset under fsys. Any flatten error aborts
// the whole pass. Controllers keep discovery order.
func Bake(ctx context.Context, fsys fs.FS, cfg config.Config, logger *slog.Logger) (database.Database, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	hash, err := controller.HashByName(cfg.Hash)
	if err != nil {
		return database.Database{}, nil, err
	}
	f := flatten.New(flatten.WithHash(hash), flatten.WithLegacyVector(cfg.LegacyVector))

	paths, err := source.Discover(fsys, cfg.Include...)
	if err != nil {
		return database.Database{}, nil, err
	}

	results := make([]*controller.Controller, len(paths))
	skipped := make([]bool, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Workers > 0 {
		g.SetLimit(cfg.Workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spec, err := source.LoadController(fsys, p)
			if errors.Is(err, source.ErrNotController) {
				logger.Debug("skipping non-controller asset", "path", p)
				skipped[i] = true
				return nil
			}
			if err != nil {
				return err
			}
			c, err := f.Flatten(spec)
			if err != nil {
				return err
			}
			logger.Debug("flattened controller", "path", p, "id", c.ID, "layers", len(c.Layers), "parameters", len(c.Parameters))
			results[i] = &c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return database.Database{}, nil, err
	}

	db := database.Database{Version: database.Version, Hash: cfg.Hash, Controllers: []controller.Controller{}}
	if db.Hash == "" {
		db.Hash = controller.HashXXH3
	}
	var skippedPaths []string
	owners := make(map[controller.ID]string, len(paths))
	for i, c := range results {
		if skipped[i] {
			skippedPaths = append(skippedPaths, paths[i])
			continue
		}
		if prev, ok := owners[c.ID]; ok {
			return database.Database{}, nil, fmt.Errorf("bake: controller %q declared by %s and %s: %w", c.ID, prev, paths[i], table.ErrDuplicateController)
		}
		owners[c.ID] = paths[i]
		db.Controllers = append(db.Controllers, *c)
	}

	if err := table.New(db.Controllers, table.WithLogger(logger)).Build(); err != nil {
		return database.Database{}, nil, err
	}
	return db, skippedPaths, nil
}

// Run bakes cfg.SourceDir and saves the database to cfg.Output.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()

	db, skipped, err := Bake(ctx, os.DirFS(cfg.SourceDir), cfg, logger)
	if err != nil {
		return Result{}, err
	}

	written, err := database.Save(cfg.Output, db)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Output:      cfg.Output,
		Controllers: len(db.Controllers),
		Skipped:     skipped,
		Written:     written,
		Duration:    time.Since(start),
	}
	logger.Info("bake complete",
		"output", res.Output,
		"controllers", res.Controllers,
		"skipped", len(res.Skipped),
		"written", res.Written,
		"duration", res.Duration,
	)
	return res, nil
}

// Watch re-runs the bake whenever a controller asset under cfg.SourceDir
// changes, until ctx is done. A failed re-bake is logged and the previous
// database is left in place.
func Watch(ctx context.Context, cfg config.Config, logger *slog.Logger, onBake func(Result)) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := source.NewWatcher(cfg.SourceDir, logger)
	if err != nil {
		return fmt.Errorf("bake: watch %s: %w", cfg.SourceDir, err)
	}
	defer w.Close()

	logger.Info("watching for controller changes", "dir", cfg.SourceDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			logger.Info("rebaking", "changed", name)
			res, err := Run(ctx, cfg, logger)
			if err != nil {
				logger.Error("rebake failed", "error", err)
				continue
			}
			if onBake != nil {
				onBake(res)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "error", err)
		}
	}
}
