package building

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/lidarclass/internal/cloud"
	"github.com/banshee-data/lidarclass/internal/fsutil"
	"github.com/banshee-data/lidarclass/internal/monitoring"
)

// Pipeline sequences the stages over one tile: read, validate, complete,
// identify, optionally clean, write. It owns the point store lifetime and
// any scoped temp resources. Each stage can be disabled independently.
type Pipeline struct {
	Validator  *Validator
	Completer  *Completer
	Identifier *Identifier
	Cleaner    *Cleaner

	EnableValidation     bool
	EnableCompletion     bool
	EnableIdentification bool
	EnableCleaning       bool

	FS fsutil.FileSystem
}

func (p *Pipeline) fs() fsutil.FileSystem {
	if p.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return p.FS
}

// RunTile processes one tile file and writes the result under outDir with the
// same base name.
func (p *Pipeline) RunTile(ctx context.Context, srcPath, outDir string) error {
	reader, err := cloud.ReaderFor(srcPath)
	if err != nil {
		return err
	}
	store, err := reader.ReadTile(srcPath)
	if err != nil {
		return err
	}
	if err := p.Apply(ctx, store); err != nil {
		return err
	}

	outPath := filepath.Join(outDir, filepath.Base(srcPath))
	writer, err := cloud.WriterFor(outPath)
	if err != nil {
		return err
	}
	if err := p.fs().MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if err := writer.WriteTile(outPath, store); err != nil {
		return err
	}
	monitoring.Logf("wrote %s", outPath)
	return nil
}

// Apply runs the enabled stages over an in-memory store.
func (p *Pipeline) Apply(ctx context.Context, store *cloud.Store) error {
	if p.EnableValidation {
		if err := p.Validator.Run(ctx, store); err != nil {
			return fmt.Errorf("validation: %w", err)
		}
	}
	if p.EnableCompletion {
		if err := p.Completer.Run(store); err != nil {
			return fmt.Errorf("completion: %w", err)
		}
	}
	if p.EnableIdentification {
		if err := p.Identifier.Run(store); err != nil {
			return fmt.Errorf("identification: %w", err)
		}
	}
	if p.EnableCleaning {
		if err := p.Cleaner.Run(store); err != nil {
			return fmt.Errorf("cleaning: %w", err)
		}
	}
	return nil
}

// RunPath processes a single tile file, or every tile in a directory. With a
// directory input, a failing tile is logged and the next one is processed;
// the error returned summarises the failures.
func (p *Pipeline) RunPath(ctx context.Context, inputPath, outDir string) error {
	paths, err := ListTiles(p.fs(), inputPath)
	if err != nil {
		return err
	}
	if len(paths) == 1 {
		return p.RunTile(ctx, paths[0], outDir)
	}

	failures := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.RunTile(ctx, path, outDir); err != nil {
			monitoring.Logf("tile %s failed: %v", path, err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d tiles failed", failures, len(paths))
	}
	return nil
}

// ListTiles expands a file-or-directory input into tile paths.
func ListTiles(fsys fsutil.FileSystem, inputPath string) ([]string, error) {
	if filepath.Ext(inputPath) == cloud.TileExt {
		return []string{inputPath}, nil
	}
	paths, err := fsys.Glob(filepath.Join(inputPath, "*"+cloud.TileExt))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s tiles under %s", cloud.TileExt, inputPath)
	}
	return paths, nil
}
