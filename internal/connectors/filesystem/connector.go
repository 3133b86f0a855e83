package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sema-cli/internal/core/domain"
	"github.com/custodia-labs/sema-cli/internal/core/ports/driven"
)

// Ensure Connector implements the interface.
var _ driven.NoteSource = (*Connector)(nil)

// noteExtensions are the file extensions treated as notes.
var noteExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

// Connector reads notes from a local directory. Each .md or .txt file
// is one note; the title is the file name without its extension.
type Connector struct {
	rootPath string
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	closed   bool
}

// New creates a filesystem connector rooted at the given directory.
func New(rootPath string) *Connector {
	return &Connector{rootPath: rootPath}
}

// Type returns the connector type identifier.
func (c *Connector) Type() string {
	return "filesystem"
}

// Capabilities returns the connector's capabilities.
func (c *Connector) Capabilities() driven.SourceCapabilities {
	return driven.SourceCapabilities{
		SupportsWatch:      true,
		SupportsValidation: true,
		SupportsPagination: false, // Directory listing is not paginated
	}
}

// Validate checks the root path exists and is a readable directory.
func (c *Connector) Validate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return domain.ErrSourceUnavailable
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	info, err := os.Stat(c.rootPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: path does not exist: %s", domain.ErrSourceUnavailable, c.rootPath)
	}
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", domain.ErrSourceUnavailable, c.rootPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", domain.ErrSourceUnavailable, c.rootPath)
	}

	if _, err := os.ReadDir(c.rootPath); err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrSourceUnavailable, c.rootPath, err)
	}

	return nil
}

// ListMeta enumerates note files under the root directory. Hidden
// files and unrecognised extensions are skipped. Results are sorted
// by title so repeated listings are stable.
func (c *Connector) ListMeta(ctx context.Context, limit int) ([]domain.NoteMeta, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, domain.ErrSourceUnavailable
	}
	c.mu.Unlock()

	var metas []domain.NoteMeta
	err := filepath.WalkDir(c.rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() && path != c.rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !noteExtensions[filepath.Ext(d.Name())] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		metas = append(metas, noteMeta(d.Name(), info))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notes in %s: %w", c.rootPath, err)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Title < metas[j].Title })

	if limit > 0 && len(metas) > limit {
		metas = metas[:limit]
	}
	return metas, nil
}

// Fetch streams the content of the named notes. A note that cannot be
// read produces a FetchError on the error channel; the stream continues
// with the remaining notes.
func (c *Connector) Fetch(ctx context.Context, titles []string) (<-chan domain.Note, <-chan error) {
	notesChan := make(chan domain.Note)
	errsChan := make(chan error, len(titles))

	go func() {
		defer close(notesChan)
		defer close(errsChan)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			errsChan <- domain.ErrSourceUnavailable
			return
		}
		c.mu.Unlock()

		paths, err := c.resolveTitles(titles)
		if err != nil {
			errsChan <- err
			return
		}

		for _, title := range titles {
			select {
			case <-ctx.Done():
				return
			default:
			}

			path, ok := paths[title]
			if !ok {
				errsChan <- &driven.FetchError{Title: title, Err: domain.ErrNotFound}
				continue
			}

			note, err := readNote(title, path)
			if err != nil {
				errsChan <- &driven.FetchError{Title: title, Err: err}
				continue
			}

			select {
			case <-ctx.Done():
				return
			case notesChan <- note:
			}
		}
	}()

	return notesChan, errsChan
}

// Watch emits note metadata whenever a note file is created or
// written under the root directory. The channel closes when the
// context is cancelled.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.NoteMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, domain.ErrSourceUnavailable
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(c.rootPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}
	c.watcher = watcher

	events := make(chan domain.NoteMeta)
	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				name := filepath.Base(ev.Name)
				if strings.HasPrefix(name, ".") || !noteExtensions[filepath.Ext(name)] {
					continue
				}
				info, err := os.Stat(ev.Name)
				if err != nil {
					continue
				}
				select {
				case <-ctx.Done():
					return
				case events <- noteMeta(name, info):
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}

// Close releases the watcher if one is active. Subsequent calls are
// no-ops.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// resolveTitles maps note titles to file paths. When two files share a
// title (same stem, different extension) the first in walk order wins.
func (c *Connector) resolveTitles(titles []string) (map[string]string, error) {
	wanted := make(map[string]bool, len(titles))
	for _, t := range titles {
		wanted[t] = true
	}

	paths := make(map[string]string, len(titles))
	err := filepath.WalkDir(c.rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() && path != c.rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !noteExtensions[filepath.Ext(d.Name())] {
			return nil
		}
		title := titleFromName(d.Name())
		if wanted[title] {
			if _, seen := paths[title]; !seen {
				paths[title] = path
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resolve notes in %s: %w", c.rootPath, err)
	}
	return paths, nil
}

// readNote loads one note file from disk.
func readNote(title, path string) (domain.Note, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Note{}, fmt.Errorf("stat: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.Note{}, fmt.Errorf("read: %w", err)
	}
	meta := noteMeta(filepath.Base(path), info)
	return domain.Note{
		Title:      title,
		Body:       string(content),
		CreatedAt:  meta.CreatedAt,
		ModifiedAt: meta.ModifiedAt,
	}, nil
}

// noteMeta builds note metadata from a file name and its info. Most
// filesystems do not expose a creation time portably, so the
// modification time stands in for it.
func noteMeta(name string, info os.FileInfo) domain.NoteMeta {
	return domain.NoteMeta{
		Title:      titleFromName(name),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}
}

// titleFromName strips the extension from a file name.
func titleFromName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
