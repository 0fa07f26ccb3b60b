// Package observer ingests frame files deposited into a watched directory
// by an external capture process. It is a polling scanner, not an inotify
// watcher: each tick diffs the directory contents against the set of paths
// already ingested and hands genuinely new files to the store.
package observer

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mremehr/collab-core/pkg/collab"
)

// DefaultScanInterval is how often the frame directory is scanned when no
// interval is configured.
const DefaultScanInterval = 800 * time.Millisecond

// Config controls a single ingestor.
type Config struct {
	// Dir is the directory scanned for frame files (non-recursive).
	Dir string

	// ScanInterval is the pause between scans. Zero means
	// DefaultScanInterval.
	ScanInterval time.Duration

	// SeedExisting makes the first successful scan treat every file already
	// present as known, so only later arrivals are ingested. The default
	// (false) emits everything found on the first scan: a restart re-emits
	// the full directory.
	SeedExisting bool
}

// Ingestor periodically scans a directory and feeds new frame files into
// the store. It never fails the process: listing and stat errors are
// logged and swallowed, and the next tick retries from scratch. The
// remembered set lives only in memory.
type Ingestor struct {
	store      *collab.Store
	config     Config
	remembered map[string]struct{}
	seeded     bool
}

// New creates an ingestor for the given store and configuration.
func New(store *collab.Store, config Config) *Ingestor {
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultScanInterval
	}
	return &Ingestor{
		store:      store,
		config:     config,
		remembered: make(map[string]struct{}),
	}
}

// Run scans immediately and then on every interval tick until the context
// is cancelled. It always returns ctx.Err().
func (ing *Ingestor) Run(ctx context.Context) error {
	log.Printf("[Observer] watching %s every %v", ing.config.Dir, ing.config.ScanInterval)

	ticker := time.NewTicker(ing.config.ScanInterval)
	defer ticker.Stop()

	for {
		ing.scanOnce(ctx)

		select {
		case <-ctx.Done():
			log.Printf("[Observer] shutting down")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// candidate is a directory entry that survived the remembered-set diff and
// a successful stat.
type candidate struct {
	path         string
	filename     string
	sizeBytes    uint64
	modifiedAtMs uint64
}

// scanOnce performs one directory diff. A missing directory is a noop; a
// file that fails to stat is skipped (it may be mid-write and will be
// picked up by a later tick).
func (ing *Ingestor) scanOnce(ctx context.Context) {
	entries, err := os.ReadDir(ing.config.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Observer] scan of %s failed: %v", ing.config.Dir, err)
		}
		return
	}

	if ing.config.SeedExisting && !ing.seeded {
		for _, entry := range entries {
			if entry.Type().IsRegular() {
				ing.remembered[filepath.Join(ing.config.Dir, entry.Name())] = struct{}{}
			}
		}
		ing.seeded = true
		return
	}
	ing.seeded = true

	var fresh []candidate
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(ing.config.Dir, entry.Name())
		if _, known := ing.remembered[path]; known {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("[Observer] stat %s failed, skipping: %v", path, err)
			continue
		}
		fresh = append(fresh, candidate{
			path:         path,
			filename:     entry.Name(),
			sizeBytes:    uint64(info.Size()),
			modifiedAtMs: uint64(info.ModTime().UnixMilli()),
		})
	}

	// Deterministic ingestion order: modification time ascending, filename
	// as tie-break.
	sort.Slice(fresh, func(i, j int) bool {
		if fresh[i].modifiedAtMs != fresh[j].modifiedAtMs {
			return fresh[i].modifiedAtMs < fresh[j].modifiedAtMs
		}
		return fresh[i].filename < fresh[j].filename
	})

	for _, file := range fresh {
		if ctx.Err() != nil {
			return
		}
		_, created, err := ing.store.IngestFrame(collab.FrameInput{
			Path:         file.path,
			Filename:     file.filename,
			SizeBytes:    file.sizeBytes,
			ModifiedAtMs: file.modifiedAtMs,
		})
		if err != nil {
			log.Printf("[Observer] ingest %s failed, skipping: %v", file.path, err)
			continue
		}
		ing.remembered[file.path] = struct{}{}
		if created {
			log.Printf("[Observer] frame ingested: %s", file.filename)
		}
	}
}
