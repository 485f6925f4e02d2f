package feedcache

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

var (
	ErrNotFound           = errors.New("feed not found")
	ErrStorageUnavailable = errors.New("feed storage unavailable")
	ErrInvalidPath        = errors.New("invalid feed path")
)

type WriteResult int

const (
	Unchanged WriteResult = iota
	Written
)

func (r WriteResult) String() string {
	if r == Written {
		return "written"
	}
	return "unchanged"
}

// Store of generated feeds, addressed by a slash separated path relative to
// the filesystem root. Readers always see a complete file: new content goes
// to a temp file first and is renamed over the old one.
type Cache struct {
	fs      billy.Filesystem
	tmpSeq  atomic.Uint64
	onWrite func(WriteResult)
}

type Option func(*Cache)

// Called after every WriteIfChanged that didn't fail.
func WithWriteHook(hook func(WriteResult)) Option {
	return func(c *Cache) {
		c.onWrite = hook
	}
}

func New(fs billy.Filesystem, opts ...Option) *Cache {
	c := &Cache{fs: fs}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cache rooted at a directory on disk. The bound OS filesystem refuses paths
// (and symlinks) that resolve outside of root.
func NewOS(root string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("feedcache.NewOS: %w: %w", ErrStorageUnavailable, err)
	}
	return New(osfs.New(root, osfs.WithBoundOS()), opts...), nil
}

func (c *Cache) Read(name string) ([]byte, error) {
	p, err := cleanPath(name)
	if err != nil {
		return nil, err
	}
	data, err := util.ReadFile(c.fs, p)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("(*Cache).Read: %s: %w", p, ErrNotFound)
	case errors.Is(err, billy.ErrCrossedBoundary):
		return nil, fmt.Errorf("(*Cache).Read: %s: %w", p, ErrInvalidPath)
	case err != nil:
		return nil, fmt.Errorf("(*Cache).Read: %s: %w: %w", p, ErrStorageUnavailable, err)
	}
	return data, nil
}

// Replace the content at name unless it is already byte-for-byte equal.
// Parent directories are created as needed.
func (c *Cache) WriteIfChanged(name string, content []byte) (WriteResult, error) {
	p, err := cleanPath(name)
	if err != nil {
		return Unchanged, err
	}

	existing, err := c.Read(p)
	switch {
	case err == nil && bytes.Equal(existing, content):
		c.notify(Unchanged)
		return Unchanged, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Unchanged, err
	}

	dir := path.Dir(p)
	if dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return Unchanged, fmt.Errorf("(*Cache).WriteIfChanged: %s: %w: %w", p, ErrStorageUnavailable, err)
		}
	}

	tmp := path.Join(dir, fmt.Sprintf(".%s.%d-%d.tmp", path.Base(p), time.Now().UnixNano(), c.tmpSeq.Add(1)))
	if err := util.WriteFile(c.fs, tmp, content, 0o644); err != nil {
		c.discard(tmp)
		return Unchanged, fmt.Errorf("(*Cache).WriteIfChanged: %s: %w: %w", p, ErrStorageUnavailable, err)
	}
	if err := c.fs.Rename(tmp, p); err != nil {
		c.discard(tmp)
		return Unchanged, fmt.Errorf("(*Cache).WriteIfChanged: %s: %w: %w", p, ErrStorageUnavailable, err)
	}

	slog.Debug("feed written", "path", p, "bytes", len(content))
	c.notify(Written)
	return Written, nil
}

func (c *Cache) discard(tmp string) {
	if err := c.fs.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("can't remove temp feed file", "path", tmp, "error", err)
	}
}

func (c *Cache) notify(r WriteResult) {
	if c.onWrite != nil {
		c.onWrite(r)
	}
}

// Relative, slash separated, without any ".." escaping the root.
func cleanPath(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	p := path.Clean(name)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return p, nil
}
