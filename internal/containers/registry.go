package containers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/search-relevance/internal/relevance"
	"github.com/lox/search-relevance/internal/settings"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Source provides stored container settings
type Source interface {
	List(ctx context.Context) ([]string, error)
	Get(ctx context.Context, name string) (*settings.ContainerSettings, error)
}

// LoadOptions controls how a registry is filled from a Source
type LoadOptions struct {
	// Concurrency bounds the number of containers loaded at once
	Concurrency int
	// Strict fails the whole load on the first invalid container instead of skipping it
	Strict bool
}

// Registry maps search request containers to their relevance configuration
type Registry struct {
	mu      sync.RWMutex
	configs map[string]*relevance.Config
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		configs: make(map[string]*relevance.Config),
	}
}

// Register adds or replaces the configuration of a container
func (r *Registry) Register(name string, cfg *relevance.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = cfg
}

// Get returns the configuration of a container
func (r *Registry) Get(name string) (*relevance.Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[name]
	return cfg, ok
}

// GetOrDefault returns the configuration of a container, falling back to the
// default settings when the container is unknown
func (r *Registry) GetOrDefault(name string) *relevance.Config {
	if cfg, ok := r.Get(name); ok {
		return cfg
	}
	return settings.Defaults(name).RelevanceConfig()
}

// List returns the registered container names in alphabetical order
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Len returns the number of registered containers
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.configs)
}

// LoadFromFile registers every container of a settings file. The file is
// validated first; nothing is registered if it is invalid.
func (r *Registry) LoadFromFile(f *settings.File) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for _, c := range f.Containers {
		r.Register(c.Name, c.RelevanceConfig())
	}
	return nil
}

// LoadFromStore registers every container held by the source. Containers with
// invalid settings are logged and skipped unless opts.Strict is set. Nothing is
// registered when the load fails.
func (r *Registry) LoadFromStore(ctx context.Context, source Source, logger *log.Logger, opts LoadOptions) error {
	startTime := time.Now()

	names, err := source.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu      sync.Mutex
		loaded  = make(map[string]*relevance.Config, len(names))
		skipped int
	)

	for _, name := range names {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}

			s, err := source.Get(gCtx, name)
			if err != nil {
				return fmt.Errorf("failed to load container %q: %w", name, err)
			}

			if err := s.Validate(); err != nil {
				var verr *settings.ValidationError
				if opts.Strict || !errors.As(err, &verr) {
					return err
				}
				logger.Warn("Skipping container with invalid settings", "name", name, "error", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			cfg := s.RelevanceConfig()
			mu.Lock()
			loaded[name] = cfg
			mu.Unlock()
			logger.Debug("Loaded container", "name", name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	r.mu.Lock()
	for name, cfg := range loaded {
		r.configs[name] = cfg
	}
	r.mu.Unlock()

	logger.Info("Loaded relevance configurations",
		"containers", len(loaded),
		"skipped", skipped,
		"duration", time.Since(startTime))

	return nil
}
