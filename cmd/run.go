package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/histread/internal/assignment"
	"github.com/abhisek/histread/internal/dialogue"
	"github.com/abhisek/histread/internal/llm"
	"github.com/abhisek/histread/internal/logging"
	"github.com/abhisek/histread/internal/mastery"
	"github.com/abhisek/histread/internal/metrics"
	"github.com/abhisek/histread/internal/reference"
	"github.com/abhisek/histread/internal/session"
	"github.com/abhisek/histread/internal/store"
)

// runtime holds everything a session-driving command needs. Close
// releases it in reverse order of construction.
type runtime struct {
	log     *zap.Logger
	store   *store.Store
	catalog *assignment.Catalog
	metrics *metrics.Metrics
	engine  *session.Engine
	closers []func()
}

type runtimeOptions struct {
	// Store, when set, is used instead of the configured database.
	Store *store.Store

	// Quiet discards logs unless --log-file is set, for the terminal UI.
	Quiet bool

	Lock session.LockPolicy
}

// newLogger builds the process logger from the persistent flags.
func newLogger(cmd *cobra.Command, quiet bool) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	path, _ := cmd.Flags().GetString("log-file")
	if quiet && path == "" {
		return zap.NewNop(), nil
	}
	return logging.New(logging.Config{Verbose: verbose, Path: path})
}

// openRuntime opens the store, builds the LLM provider and assembles the
// progression engine.
func openRuntime(cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	ctx := cmd.Context()

	log, err := newLogger(cmd, opts.Quiet)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	rt := &runtime{log: log, metrics: metrics.New(nil)}
	rt.closers = append(rt.closers, func() { _ = log.Sync() })

	rt.store = opts.Store
	if rt.store == nil {
		if rt.store, err = openStore(cmd); err != nil {
			rt.Close()
			return nil, err
		}
	}
	st := rt.store
	rt.closers = append(rt.closers, func() { _ = st.Close() })
	rt.catalog = assignment.NewCatalog(st.Assignments())

	provider, err := llm.NewProviderFromEnv(ctx, st.Events(), log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	provider = rt.metrics.Instrument(provider)

	refs, err := openReferences(ctx, cmd, log, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	dcfg := dialogue.DefaultConfig()
	if dcfg.ContextPolicy, err = dialogue.ParseContextPolicy(os.Getenv("HISTREAD_CONTEXT_POLICY")); err != nil {
		rt.Close()
		return nil, err
	}

	cfg := session.DefaultConfig()
	if opts.Lock != "" {
		cfg.Lock = opts.Lock
	}

	rt.engine, err = session.NewEngine(session.Deps{
		Assignments: rt.catalog,
		Sessions:    session.NewStoreRepository(st.Sessions()),
		Composer:    dialogue.NewComposer(refs, dcfg),
		Generator:   dialogue.NewGenerator(provider, dcfg),
		Gate:        mastery.NewGate(mastery.NewLLMJudge(provider, mastery.DefaultJudgeConfig()), log),
		Logger:      log,
		Observer:    rt.metrics,
	}, cfg)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("build engine: %w", err)
	}

	log.Info("engine ready",
		zap.String("model", provider.ModelID()),
		zap.String("context_policy", string(dcfg.ContextPolicy)),
		zap.String("lock", string(cfg.Lock)))
	return rt, nil
}

// openReferences loads the reference library and, when a directory is
// configured, watches it for edits.
func openReferences(ctx context.Context, cmd *cobra.Command, log *zap.Logger, rt *runtime) (*reference.Library, error) {
	dir, _ := cmd.Flags().GetString("references")
	if dir == "" {
		dir = os.Getenv("HISTREAD_REFERENCE_DIR")
	}
	lib := reference.NewLibrary(dir, log)
	if dir == "" {
		return lib, nil
	}

	w, err := reference.NewWatcher(lib, log)
	if err != nil {
		return nil, fmt.Errorf("watch references: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		// Missing directories degrade to the built-in defaults.
		log.Warn("reference directory not watched", zap.String("dir", dir), zap.Error(err))
		w.Stop()
		return lib, nil
	}
	rt.closers = append(rt.closers, w.Stop)
	return lib, nil
}

// Close releases the runtime.
func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// turnTimeout bounds one engine call from the terminal clients.
func turnTimeout(cmd *cobra.Command) time.Duration {
	d, _ := cmd.Flags().GetDuration("turn-timeout")
	return d
}

// addEngineFlags registers the flags every session-driving command shares.
func addEngineFlags(cmd *cobra.Command) {
	cmd.Flags().String("references", "", "Directory of reference documents (overrides HISTREAD_REFERENCE_DIR)")
	cmd.Flags().Duration("turn-timeout", 2*time.Minute, "Upper bound for one tutor turn (0 disables)")
}
