package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonwraymond/embedcache/cache"
)

// DirCheckerConfig configures the cache directory checker.
type DirCheckerConfig struct {
	// Dir is the cache directory to check.
	Dir string

	// Verify parses every entry and reports files that are not valid JSON,
	// and vectors or matrices whose rows do not have Dimension values.
	// Default: false
	Verify bool

	// Dimension is the embedding dimension entries are verified against.
	// Default: cache.DefaultDimension
	Dimension int
}

// DirChecker checks that the cache directory exists and is writable, and
// reports how many entries it holds.
type DirChecker struct {
	config DirCheckerConfig
}

// NewDirChecker creates a new cache directory checker.
func NewDirChecker(config DirCheckerConfig) *DirChecker {
	if config.Dimension <= 0 {
		config.Dimension = cache.DefaultDimension
	}
	return &DirChecker{config: config}
}

// Name returns "cache_dir".
func (c *DirChecker) Name() string {
	return "cache_dir"
}

// Check creates the directory if needed, writes and removes a test file,
// and counts entries. Unparseable entries make the result degraded; the
// files themselves are left alone.
func (c *DirChecker) Check(ctx context.Context) Result {
	dir := c.config.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Unhealthy(fmt.Sprintf("cannot create %s", dir), fmt.Errorf("%w: %v", ErrNotWritable, err))
	}

	tmp, err := os.CreateTemp(dir, ".write-test-*")
	if err != nil {
		return Unhealthy(fmt.Sprintf("cannot write to %s", dir), fmt.Errorf("%w: %v", ErrNotWritable, err))
	}
	_ = tmp.Close()
	_ = os.Remove(tmp.Name())

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Unhealthy(fmt.Sprintf("cannot list %s", dir), err)
	}

	var (
		count   int
		size    int64
		corrupt []string
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Unhealthy("scan cancelled", err)
		}
		count++
		if info, err := e.Info(); err == nil {
			size += info.Size()
		}
		if c.config.Verify {
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil || cache.VerifyEntry(data, c.config.Dimension) != nil {
				corrupt = append(corrupt, e.Name())
			}
		}
	}

	details := map[string]any{
		"dir":     dir,
		"entries": count,
		"bytes":   size,
	}
	if len(corrupt) > 0 {
		details["corrupt"] = corrupt
		return Degraded(fmt.Sprintf("%d of %d entries are corrupt", len(corrupt), count)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%d entries in %s", count, dir)).WithDetails(details)
}

// CredentialsChecker checks that an API key is configured. It never reports
// the key itself.
type CredentialsChecker struct {
	source string
	key    string
}

// NewCredentialsChecker creates a checker for key, naming source (such as
// the environment variable it came from) in its messages.
func NewCredentialsChecker(source, key string) *CredentialsChecker {
	return &CredentialsChecker{source: source, key: key}
}

// Name returns "credentials".
func (c *CredentialsChecker) Name() string {
	return "credentials"
}

// Check reports Unhealthy when no key is set.
func (c *CredentialsChecker) Check(ctx context.Context) Result {
	if strings.TrimSpace(c.key) == "" {
		return Unhealthy(fmt.Sprintf("%s is not set", c.source), ErrMissingCredentials)
	}
	return Healthy(fmt.Sprintf("%s is set", c.source))
}
