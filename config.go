package blade

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"

	"github.com/leaf-app/go-blade/ejs"
)

// Config holds engine settings read from the environment.
type Config struct {
	// ViewsDir is the views root (BLADE_VIEWS_DIR)
	ViewsDir string
	// Extension is the default template extension (BLADE_EXTENSION)
	Extension string
	// Cache enables the template content cache (BLADE_CACHE)
	Cache bool
	// Production drops comments from compiled output (APP_ENV=production)
	Production bool
	// MaxDepth bounds layout and include nesting (BLADE_MAX_DEPTH)
	MaxDepth int
	// MaxLoopIterations bounds every loop in a render (BLADE_MAX_LOOP)
	MaxLoopIterations int
	// Preload warms the cache when the engine is created (BLADE_PRELOAD)
	Preload bool
}

// DefaultMaxDepth bounds layout and include nesting.
const DefaultMaxDepth = 64

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ViewsDir:          "views/blade",
		Extension:         DefaultExtension,
		Cache:             true,
		Production:        false,
		MaxDepth:          DefaultMaxDepth,
		MaxLoopIterations: ejs.DefaultMaxLoopIterations,
	}
}

// LoadConfig reads the given .env files (".env" when none are named) into
// the process environment and builds a Config from it. Missing files are
// skipped; variables already set in the environment win.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("blade: load %s: %w", f, err)
		}
	}
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a Config from lookup, starting from DefaultConfig.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	var err error
	if v, ok := lookup("BLADE_VIEWS_DIR"); ok && v != "" {
		cfg.ViewsDir = v
	}
	if v, ok := lookup("BLADE_EXTENSION"); ok && v != "" {
		cfg.Extension = v
	}
	if v, ok := lookup("APP_ENV"); ok && v != "" {
		cfg.Production = strings.EqualFold(v, "production")
	}
	if v, ok := lookup("BLADE_CACHE"); ok && v != "" {
		if cfg.Cache, err = cast.ToBoolE(v); err != nil {
			return Config{}, fmt.Errorf("blade: BLADE_CACHE: %w", err)
		}
	}
	if v, ok := lookup("BLADE_PRELOAD"); ok && v != "" {
		if cfg.Preload, err = cast.ToBoolE(v); err != nil {
			return Config{}, fmt.Errorf("blade: BLADE_PRELOAD: %w", err)
		}
	}
	if v, ok := lookup("BLADE_MAX_DEPTH"); ok && v != "" {
		if cfg.MaxDepth, err = cast.ToIntE(v); err != nil {
			return Config{}, fmt.Errorf("blade: BLADE_MAX_DEPTH: %w", err)
		}
	}
	if v, ok := lookup("BLADE_MAX_LOOP"); ok && v != "" {
		if cfg.MaxLoopIterations, err = cast.ToIntE(v); err != nil {
			return Config{}, fmt.Errorf("blade: BLADE_MAX_LOOP: %w", err)
		}
	}
	return cfg, nil
}
