package blade

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultExtension is appended to template names without a recognised
// extension.
const DefaultExtension = ".blade.html"

// ValidFileExtensions are the template extensions recognised by default.
var ValidFileExtensions = []string{".blade.html", ".blade", ".html"}

// Store maps template names to files in an fs.FS and loads their raw
// content. With caching on, content is memoised by path for the lifetime of
// the Store; entries are never evicted.
//
// A Store is safe for concurrent use and is meant to be created once and
// shared by every Engine that renders the same views.
type Store struct {
	fsys       fs.FS
	extension  string
	extensions []string
	cache      bool
	logger     zerolog.Logger
	metrics    *Metrics

	mu      sync.RWMutex
	entries map[string]string
	loads   singleflight.Group
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreCache turns content caching on or off. It is on by default.
func WithStoreCache(on bool) StoreOption {
	return func(s *Store) { s.cache = on }
}

// WithStoreExtension sets the default extension and adds it to the
// recognised ones.
func WithStoreExtension(ext string) StoreOption {
	return func(s *Store) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.extension = ext
		if !slices.Contains(s.extensions, ext) {
			s.extensions = append(s.extensions, ext)
		}
	}
}

// WithStoreLogger sets the store's logger.
func WithStoreLogger(l zerolog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithStoreMetrics records cache and load counters.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a Store reading from fsys.
func NewStore(fsys fs.FS, opts ...StoreOption) *Store {
	s := &Store{
		fsys:       fsys,
		extension:  DefaultExtension,
		extensions: slices.Clone(ValidFileExtensions),
		cache:      true,
		logger:     zerolog.Nop(),
		entries:    map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	// longest first, so ".blade.html" wins over ".html"
	sort.SliceStable(s.extensions, func(i, j int) bool {
		return len(s.extensions[i]) > len(s.extensions[j])
	})
	return s
}

// Resolve maps a template name to its path inside the store's FS.
// "posts.show" and "posts/show" both resolve to "posts/show.blade.html";
// a name that already ends in a recognised extension is used as written,
// so "my.page.blade.html" stays "my.page.blade.html".
func (s *Store) Resolve(name string) (string, error) {
	n := normalizeName(name)
	if n == "" || slices.Contains(strings.Split(n, "/"), "..") {
		return "", &TemplateError{Name: name, Err: ErrInvalidName}
	}
	if s.extensionOf(n) == "" {
		n = strings.ReplaceAll(n, ".", "/") + s.extension
	}
	p := path.Clean(n)
	if !fs.ValidPath(p) {
		return "", &TemplateError{Name: name, Path: p, Err: ErrInvalidName}
	}
	return p, nil
}

func (s *Store) extensionOf(name string) string {
	for _, ext := range s.extensions {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return ext
		}
	}
	return ""
}

// Load returns the raw content at p. Missing files yield an error wrapping
// ErrTemplateNotFound.
func (s *Store) Load(p string) (string, error) {
	if !s.cache {
		return s.read(p)
	}

	s.mu.RLock()
	content, ok := s.entries[p]
	s.mu.RUnlock()
	if ok {
		s.metrics.cacheHit()
		s.logger.Debug().Str("path", p).Msg("template cache hit")
		return content, nil
	}
	s.metrics.cacheMiss()

	// concurrent first loads of one path share a single read
	v, err, _ := s.loads.Do(p, func() (any, error) {
		s.mu.RLock()
		content, ok := s.entries[p]
		s.mu.RUnlock()
		if ok {
			return content, nil
		}
		content, err := s.read(p)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.entries[p] = content
		s.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Get resolves name and loads it.
func (s *Store) Get(name string) (string, string, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return "", "", err
	}
	content, err := s.Load(p)
	if err != nil {
		var te *TemplateError
		if errors.As(err, &te) {
			return p, "", &TemplateError{Name: name, Path: te.Path, Err: te.Err}
		}
		return p, "", err
	}
	return p, content, nil
}

// Preload reads every template under the FS into the cache. It is a no-op
// when caching is off.
func (s *Store) Preload() (int, error) {
	if !s.cache {
		return 0, nil
	}
	count := 0
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || s.extensionOf(p) == "" {
			return nil
		}
		if _, err := s.Load(p); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("blade: preload templates: %w", err)
	}
	s.logger.Debug().Int("templates", count).Msg("templates preloaded")
	return count, nil
}

// Len reports how many templates are cached.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) read(p string) (string, error) {
	s.metrics.load()
	raw, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &TemplateError{Path: p, Err: ErrTemplateNotFound}
		}
		return "", &TemplateError{Path: p, Err: err}
	}
	s.logger.Debug().Str("path", p).Int("bytes", len(raw)).Msg("template loaded")
	return string(raw), nil
}

// normalizeName removes quotes and surrounding spaces and normalises
// separators.
func normalizeName(n string) string {
	n = strings.TrimSpace(n)
	n = strings.Trim(n, `"' `)
	n = strings.ReplaceAll(n, `\`, "/")
	return strings.TrimLeft(n, "/")
}
