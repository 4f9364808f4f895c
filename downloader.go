package bundlecrypt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Downloader materializes a catalog's bundles below an output filesystem
// root: verify what already exists, download and decode what is missing or
// invalid, and retry failures with shrinking parallelism.
type Downloader struct {
	config   *Config
	logger   *slog.Logger
	progress Progress
}

// PassStats describes one download pass.
type PassStats struct {
	Pass        int // 1-based pass number
	Concurrency int // Worker count used for this pass
	Attempted   int // Bundles attempted in this pass
	Failed      int // Bundles that failed in this pass
}

// Result summarizes a completed run.
type Result struct {
	Verified   int // Existing files that matched their expected size
	Downloaded int // Bundles fetched and written
	Passes     []PassStats
}

// NewDownloader creates a downloader from the given configuration.
func NewDownloader(config *Config) (*Downloader, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Downloader{
		config: config,
		logger: config.logger(),
	}, nil
}

// Progress returns the live progress counters for the pass currently
// running. The returned pointer is valid for the downloader's lifetime and
// safe to poll concurrently with a run.
func (d *Downloader) Progress() *Progress {
	return &d.progress
}

// failedSet is the append-only collection of bundles that failed during one
// pass. Workers append concurrently; it is drained between passes.
type failedSet struct {
	mu      sync.Mutex
	bundles []BundleDescriptor
}

func (s *failedSet) add(desc BundleDescriptor) {
	s.mu.Lock()
	s.bundles = append(s.bundles, desc)
	s.mu.Unlock()
}

func (s *failedSet) drain() []BundleDescriptor {
	s.mu.Lock()
	out := s.bundles
	s.bundles = nil
	s.mu.Unlock()
	return out
}

// Run materializes every descriptor's decoded bytes at its relative path
// below the output root.
//
// Per-bundle failures of any kind are recorded and retried on the next
// pass with concurrency reduced to 1; they never abort the batch. Run
// returns an error only for conditions fatal to the whole run: output
// directory creation, context cancellation, or (when Config.MaxPasses is
// set) exhausting MaxPasses with failures remaining.
func (d *Downloader) Run(ctx context.Context, descs []BundleDescriptor) (*Result, error) {
	result := &Result{}
	if len(descs) == 0 {
		return result, nil
	}

	if err := ValidateDescriptors(descs); err != nil {
		return result, fmt.Errorf("invalid descriptor set: %w", err)
	}

	if err := d.createParentDirs(descs); err != nil {
		return result, err
	}

	need, verified, err := d.verifyExisting(ctx, descs)
	if err != nil {
		return result, err
	}
	result.Verified = verified

	concurrency := d.config.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}

	for pass := 1; len(need) > 0; pass++ {
		if d.config.MaxPasses > 0 && pass > d.config.MaxPasses {
			return result, fmt.Errorf("%w: %d bundle(s) still failing after %d pass(es)",
				ErrRetriesExhausted, len(need), d.config.MaxPasses)
		}
		if pass > 1 {
			// Failures are often load-related; retries run one at a time.
			concurrency = 1
		}

		attempted := len(need)
		failed, err := d.downloadPass(ctx, need, concurrency, pass)
		if err != nil {
			return result, err
		}

		result.Downloaded += attempted - len(failed)
		result.Passes = append(result.Passes, PassStats{
			Pass:        pass,
			Concurrency: concurrency,
			Attempted:   attempted,
			Failed:      len(failed),
		})
		d.logger.Info("download pass complete",
			"pass", pass,
			"concurrency", concurrency,
			"attempted", attempted,
			"failed", len(failed))

		need = failed
	}

	return result, nil
}

// targetPath maps a catalog relative path onto the output filesystem.
func targetPath(relativePath string) string {
	return path.Clean("/" + relativePath)
}

// createParentDirs pre-creates every distinct parent directory implied by
// the descriptors, so workers never race on directory creation.
func (d *Downloader) createParentDirs(descs []BundleDescriptor) error {
	dirs := make(map[string]struct{})
	for i := range descs {
		dirs[path.Dir(targetPath(descs[i].RelativePath))] = struct{}{}
	}
	for dir := range dirs {
		if dir == "/" {
			continue
		}
		if err := d.config.OutputFS.MkdirAll(dir, 0755); err != nil {
			return NewPersistenceError("mkdir", dir, err)
		}
	}
	return nil
}

// verifyExisting compares already-materialized files against their expected
// plaintext size and returns the descriptors that still need downloading.
// The pass only runs (and only counts progress) when at least one target
// file exists; full-content hash verification is deliberately not done.
func (d *Downloader) verifyExisting(ctx context.Context, descs []BundleDescriptor) (need []BundleDescriptor, verified int, err error) {
	var existing, missing []BundleDescriptor
	for _, desc := range descs {
		if _, statErr := d.config.OutputFS.Stat(targetPath(desc.RelativePath)); statErr != nil {
			missing = append(missing, desc)
		} else {
			existing = append(existing, desc)
		}
	}
	need = missing
	if len(existing) == 0 {
		return need, 0, nil
	}

	concurrency := d.config.Concurrency
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(existing) {
		concurrency = len(existing)
	}

	d.progress.begin(len(existing))

	var (
		wg      sync.WaitGroup
		invalid failedSet
		okCount atomic.Int64
	)
	jobChan := make(chan int, len(existing))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				desc := existing[idx]
				info, statErr := d.config.OutputFS.Stat(targetPath(desc.RelativePath))
				if statErr != nil || info.Size() != desc.PlaintextSize() {
					invalid.add(desc)
				} else {
					okCount.Add(1)
				}
				d.progress.step()
			}
		}()
	}
	for i := range existing {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, 0, ctx.Err()
	}

	stale := invalid.drain()
	if len(stale) > 0 {
		d.logger.Info("verification pass flagged bundles for redownload",
			"existing", len(existing), "stale", len(stale))
	}
	return append(need, stale...), int(okCount.Load()), nil
}

// downloadPass fetches, decodes, and persists every bundle in the set with
// up to the given number of workers, returning the bundles that failed.
func (d *Downloader) downloadPass(ctx context.Context, descs []BundleDescriptor, concurrency, pass int) ([]BundleDescriptor, error) {
	if concurrency > len(descs) {
		concurrency = len(descs)
	}

	d.progress.begin(len(descs))

	var (
		wg     sync.WaitGroup
		failed failedSet
	)
	jobChan := make(chan int, len(descs))

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				if ctx.Err() != nil {
					continue
				}
				desc := descs[idx]
				if err := d.processBundle(ctx, &desc); err != nil {
					failed.add(desc)
					if IsProtocolError(err) {
						// Distinct signal: may be a key-derivation bug, not
						// a transient condition.
						d.logger.Error("bundle decode corrupted",
							"path", desc.RelativePath, "pass", pass, "err", err)
					} else {
						d.logger.Warn("bundle failed",
							"path", desc.RelativePath, "pass", pass, "err", err)
					}
				}
				d.progress.step()
			}
		}()
	}
	for i := range descs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return failed.drain(), nil
}

// processBundle runs one bundle through fetch, decode, and persist.
func (d *Downloader) processBundle(ctx context.Context, desc *BundleDescriptor) error {
	raw, err := d.config.Transport.Fetch(ctx, desc.RelativePath)
	if err != nil {
		if IsTransportError(err) {
			return err
		}
		return NewTransportError(desc.RelativePath, 0, err)
	}

	plaintext, err := DecodeBundle(desc, raw)
	if err != nil {
		if IsContainerError(err) || IsIntegrityError(err) {
			return err
		}
		return NewProtocolError(desc.RelativePath, err)
	}

	return d.writeBundle(desc, plaintext)
}

// writeBundle persists decoded bytes with a write-then-rename so a crashed
// worker never leaves a truncated file at the target path.
func (d *Downloader) writeBundle(desc *BundleDescriptor, plaintext []byte) error {
	target := targetPath(desc.RelativePath)
	tmp := target + ".tmp-" + uuid.NewString()

	f, err := d.config.OutputFS.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return NewPersistenceError("create", tmp, err)
	}
	if _, err := f.Write(plaintext); err != nil {
		f.Close()
		d.config.OutputFS.Remove(tmp)
		return NewPersistenceError("write", tmp, err)
	}
	if err := f.Close(); err != nil {
		d.config.OutputFS.Remove(tmp)
		return NewPersistenceError("close", tmp, err)
	}
	if err := d.config.OutputFS.Rename(tmp, target); err != nil {
		d.config.OutputFS.Remove(tmp)
		return NewPersistenceError("rename", target, err)
	}
	return nil
}
