package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/roach88/codecraft/internal/compiler"
	"github.com/roach88/codecraft/internal/council"
	"github.com/roach88/codecraft/internal/engine"
	"github.com/roach88/codecraft/internal/memory"
	"github.com/roach88/codecraft/internal/ritual"
)

// ErrCodeGeneric is the catch-all CLI error code.
const ErrCodeGeneric = "E001"

// Runtime is an engine wired to the collaborators selected by the global
// flags. Close releases the memory backend.
type Runtime struct {
	Engine *engine.Engine
	Memory *memory.Memory
}

// Close releases the memory backend.
func (r *Runtime) Close() error {
	return r.Memory.Close()
}

// NewRuntime opens the memory backend, builds the catalog and wires the
// engine. The caller must Close the runtime.
func NewRuntime(ctx context.Context, opts *RootOptions) (*Runtime, error) {
	logger := opts.logger()

	catalog, err := LoadCatalog(opts.Rituals)
	if err != nil {
		return nil, err
	}

	backend, err := openBackend(ctx, opts)
	if err != nil {
		return nil, err
	}
	mem := memory.New(backend, memory.WithLogger(logger))

	engineOpts := []engine.Option{
		engine.WithMemory(mem),
		engine.WithCatalog(catalog),
		engine.WithLogger(logger),
		engine.WithMaxInstructions(opts.MaxInstructions),
	}
	if opts.Seed != 0 {
		engineOpts = append(engineOpts, engine.WithCouncil(seededCouncils(opts.Seed, logger)))
	}

	logger.Debug("runtime ready",
		"memory", opts.MemoryBackend,
		"rituals", catalog.Len(),
		"max_instructions", opts.MaxInstructions)

	return &Runtime{Engine: engine.New(engineOpts...), Memory: mem}, nil
}

// openBackend returns the memory backend named by opts.MemoryBackend.
func openBackend(ctx context.Context, opts *RootOptions) (memory.Backend, error) {
	switch opts.MemoryBackend {
	case "", "map":
		return memory.NewMapBackend(), nil
	case "sqlite":
		b, err := memory.OpenSQLite(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "open sqlite memory", err)
		}
		return b, nil
	case "redis":
		var ropts []memory.RedisOption
		if opts.RedisPrefix != "" {
			ropts = append(ropts, memory.WithPrefix(opts.RedisPrefix))
		}
		b := memory.NewRedis(opts.RedisAddr, opts.RedisPassword, opts.RedisDB, ropts...)
		if err := b.Ping(ctx); err != nil {
			_ = b.Close()
			return nil, WrapExitError(ExitCommandError, "connect redis memory", err)
		}
		return b, nil
	default:
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown memory backend %q", opts.MemoryBackend))
	}
}

// LoadCatalog returns the built-in catalog, extended with the templates in
// dir when dir is non-empty. The merged catalog is validated as a whole, so
// a directory template may not reuse a built-in name.
func LoadCatalog(dir string) (*ritual.Catalog, error) {
	builtin, err := compiler.Builtin()
	if err != nil {
		return nil, fmt.Errorf("built-in rituals: %w", err)
	}
	if dir == "" {
		return builtin, nil
	}

	loaded, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "load rituals", err)
	}

	templates := append(builtin.Templates(), loaded.Templates...)
	catalog, verrs := compiler.Catalog(templates)
	if len(verrs) > 0 {
		return nil, WrapExitError(ExitCommandError, "validate rituals", errors.Join(validationErrs(verrs)...))
	}
	return catalog, nil
}

func validationErrs(verrs []compiler.ValidationError) []error {
	errs := make([]error, len(verrs))
	for i, v := range verrs {
		errs[i] = v
	}
	return errs
}

// seededCouncils builds councils that draw from one seeded source, so a
// whole run is reproducible.
func seededCouncils(seed uint64, logger *slog.Logger) engine.CouncilFactory {
	rng := rand.New(&lockedSource{src: rand.NewPCG(seed, seed)})
	return func(members []string) engine.Deliberator {
		return council.New(members, council.WithRand(rng), council.WithLogger(logger))
	}
}

// lockedSource serializes a rand.Source shared by concurrent invocations.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}
