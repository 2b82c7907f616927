package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/audioquery/internal/mediastore"
	"github.com/desertthunder/audioquery/internal/shared"
	"github.com/desertthunder/audioquery/internal/tasks"
	"golang.org/x/time/rate"
)

const maxWorkers = 16

// Indexer is the part of the media store a scan writes through.
type Indexer interface {
	IndexAudio(ctx context.Context, f mediastore.AudioFile) (int64, error)
	AlbumOf(ctx context.Context, trackID int64) (int64, error)
	AlbumArt(ctx context.Context, albumID int64) (string, error)
	SetAlbumArt(ctx context.Context, albumID int64, path string) error
	Paths(ctx context.Context) ([]string, error)
	RemovePaths(ctx context.Context, paths []string) (int64, error)
	NotifyChange(uri string)
}

// Options configures a scan.
type Options struct {
	Roots      []string
	ArtworkDir string  // where extracted album artwork is written; empty disables extraction
	Workers    int     // concurrent tag readers (default: 4)
	RateLimit  float64 // files per second, 0 means unlimited
	Prune      bool    // remove tracks whose files are gone after indexing
}

// OptionsFrom builds scan options from the [scanner] config section.
func OptionsFrom(c shared.ScannerConfig) Options {
	roots := make([]string, len(c.Roots))
	for i, r := range c.Roots {
		roots[i] = shared.ExpandPath(r)
	}
	return Options{
		Roots:      roots,
		ArtworkDir: shared.ExpandPath(c.ArtworkDir),
		Workers:    c.Workers,
		RateLimit:  c.RateLimit,
	}
}

// FileError records a file that could not be indexed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string { return e.Path + ": " + e.Err.Error() }

// Result summarises a scan.
type Result struct {
	Found   int
	Indexed int
	Artwork int
	Pruned  int64
	Failed  []FileError
}

// Scanner indexes audio files into a store.
type Scanner struct {
	store  Indexer
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	checked map[int64]bool // albums whose artwork was already looked at during this scan
}

func New(store Indexer, opts Options, logger *log.Logger) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	return &Scanner{
		store:  store,
		opts:   opts,
		logger: shared.WithLogger(logger, "component", "scanner"),
	}
}

type job struct {
	step int
	path string
}

type outcome struct {
	path    string
	err     error
	albumID int64
	artwork string // extracted artwork file, if any
}

// Scan walks every root, indexes what it finds and, with Prune set, drops tracks whose files
// are gone. Per-file failures are collected in the result; the error return is kept for
// failures that stop the scan.
func (s *Scanner) Scan(ctx context.Context, prog chan<- tasks.ProgressUpdate) (*Result, error) {
	s.mu.Lock()
	s.checked = map[int64]bool{}
	s.mu.Unlock()

	var paths []string
	for _, root := range s.opts.Roots {
		found, err := Walk(ctx, root)
		if err != nil {
			return nil, err
		}
		tasks.SendProgress(prog, tasks.WalkUpdate(len(found), root))
		s.logger.Info("walked root", "root", root, "files", len(found))
		paths = append(paths, found...)
	}

	if s.opts.ArtworkDir != "" {
		if err := os.MkdirAll(s.opts.ArtworkDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create artwork directory: %w", err)
		}
	}

	result := &Result{Found: len(paths)}

	limit := rate.Inf
	if s.opts.RateLimit > 0 {
		limit = rate.Limit(s.opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	jobs := make(chan job, len(paths))
	results := make(chan outcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, jobs, results)
	}

	go func() {
		defer close(jobs)
		for i, p := range paths {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			jobs <- job{step: i + 1, path: p}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			result.Failed = append(result.Failed, FileError{Path: res.path, Err: res.err})
			tasks.SendProgress(prog, tasks.IndexFailedUpdate(completed, len(paths), res.path, res.err))
			s.logger.Warn("failed to index file", "path", res.path, "error", res.err)
			continue
		}
		result.Indexed++
		if res.artwork != "" {
			result.Artwork++
			tasks.SendProgress(prog, tasks.ArtworkUpdate(res.albumID, res.artwork))
		}
		tasks.SendProgress(prog, tasks.IndexedUpdate(completed, len(paths), res.path))
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("scan interrupted: %w", err)
	}

	if s.opts.Prune {
		n, err := s.Prune(ctx, prog)
		if err != nil {
			return result, err
		}
		result.Pruned = n
	}

	if result.Indexed > 0 || result.Pruned > 0 {
		s.store.NotifyChange(mediastore.ChangeURI)
	}
	s.logger.Info("scan complete", "found", result.Found, "indexed", result.Indexed,
		"failed", len(result.Failed), "artwork", result.Artwork, "pruned", result.Pruned)
	return result, nil
}

func (s *Scanner) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan job, results chan<- outcome) {
	defer wg.Done()

	for j := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- s.index(ctx, j.path)
	}
}

func (s *Scanner) index(ctx context.Context, path string) outcome {
	file, err := ReadFile(path)
	if err != nil {
		return outcome{path: path, err: err}
	}

	id, err := s.store.IndexAudio(ctx, file)
	if err != nil {
		return outcome{path: path, err: err}
	}

	if s.opts.ArtworkDir == "" {
		return outcome{path: path}
	}
	albumID, art, err := s.extractArtwork(ctx, id, path)
	if err != nil {
		s.logger.Debug("no artwork extracted", "path", path, "error", err)
	}
	return outcome{path: path, albumID: albumID, artwork: art}
}

// extractArtwork writes the embedded picture of the file at path as its album's artwork,
// unless the album already has artwork or another file of the album was already tried.
func (s *Scanner) extractArtwork(ctx context.Context, trackID int64, path string) (int64, string, error) {
	albumID, err := s.store.AlbumOf(ctx, trackID)
	if err != nil || albumID == 0 {
		return 0, "", err
	}

	s.mu.Lock()
	if s.checked[albumID] {
		s.mu.Unlock()
		return albumID, "", nil
	}
	s.checked[albumID] = true
	s.mu.Unlock()

	if existing, err := s.store.AlbumArt(ctx, albumID); err != nil || existing != "" {
		return albumID, "", err
	}

	pic, err := mediastore.EmbeddedPicture(path)
	if err != nil {
		// Another file of the same album may still carry a picture.
		s.mu.Lock()
		delete(s.checked, albumID)
		s.mu.Unlock()
		return albumID, "", err
	}

	out := filepath.Join(s.opts.ArtworkDir, fmt.Sprintf("album-%d.%s", albumID, pictureExtension(pic)))
	if err := os.WriteFile(out, pic.Data, 0644); err != nil {
		return albumID, "", fmt.Errorf("failed to write artwork: %w", err)
	}
	if err := s.store.SetAlbumArt(ctx, albumID, out); err != nil {
		return albumID, "", err
	}
	s.logger.Debug("extracted artwork", "album_id", albumID, "path", out)
	return albumID, out, nil
}

// Prune removes indexed tracks whose files no longer exist and returns how many were removed.
func (s *Scanner) Prune(ctx context.Context, prog chan<- tasks.ProgressUpdate) (int64, error) {
	paths, err := s.store.Paths(ctx)
	if err != nil {
		return 0, err
	}

	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			missing = append(missing, p)
		}
	}

	n, err := s.store.RemovePaths(ctx, missing)
	if err != nil {
		return 0, fmt.Errorf("failed to prune: %w", err)
	}
	tasks.SendProgress(prog, tasks.PruneUpdate(n))
	if n > 0 {
		s.logger.Info("pruned missing tracks", "removed", n)
	}
	return n, nil
}
