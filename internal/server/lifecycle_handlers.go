package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/kitten/prosemd-lsp/internal/cache"
	"github.com/kitten/prosemd-lsp/internal/cache/store/sqlite"
	"github.com/kitten/prosemd-lsp/internal/check"
	"github.com/kitten/prosemd-lsp/internal/config"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/scheduler"
)

const (
	pingTimeout = 10 * time.Second
	queueSize   = 64
	workers     = 4
)

func (s *Server) initialize(
	context *glsp.Context,
	params *protocol.InitializeParams,
) (any, error) {
	cfg, err := config.Overlay(s.base, params.InitializationOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to read initialization options: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	s.config = cfg
	log.Infof("config: %+v", cfg)

	// Engine
	e, err := s.newEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create grammar engine: %w", err)
	}
	if err := s.ping(e); err != nil {
		return nil, fmt.Errorf("grammar engine at %s is unavailable: %w", cfg.EngineURL, err)
	}

	// Cache
	opts := []cache.Option{cache.WithSize(cfg.CacheSize)}
	st, err := cache.OpenStore(s.ctx, cfg)
	if err != nil {
		log.Warningf("persistent cache disabled: %v", err)
		st = nil
	} else if st != nil {
		opts = append(opts, cache.WithStore(st, cfg.Language))
	}
	s.cache = cache.New(e, opts...)

	// Filtering sits above the cache so changing disabled rules never serves
	// stale persistent entries.
	filtered := engine.NewFilter(s.cache, cfg.DisabledRules, cfg.DisabledCategories)
	s.checker = check.NewChecker(filtered, cfg.MaxAlternatives)

	s.scheduler = scheduler.NewScheduler(queueSize, cfg.Debounce())
	s.scheduler.RunScheduler(workers)
	if pruner, ok := st.(*sqlite.Store); ok && cfg.StoreMaxEntries > 0 {
		s.scheduler.ScheduleHighPriorityTask(scheduler.Task{
			Name: "prune persistent cache",
			Execute: func() error {
				n, err := pruner.Prune(s.ctx, cfg.StoreMaxEntries)
				if err == nil && n > 0 {
					log.Infof("pruned %d cached results", n)
				}
				return err
			},
		})
	}

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.CodeActionProvider = protocol.CodeActionOptions{
		CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) ping(e engine.Engine) error {
	ctx, cancel := context.WithTimeout(s.ctx, pingTimeout)
	defer cancel()
	return engine.Ping(ctx, e)
}

func (s *Server) initialized(
	context *glsp.Context,
	params *protocol.InitializedParams,
) error {
	log.Info("client initialized")
	return nil
}

func (s *Server) shutdown(context *glsp.Context) error {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.StopScheduler()
	}
	var errs []error
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
		}
	}
	if err := s.manager.CloseAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
