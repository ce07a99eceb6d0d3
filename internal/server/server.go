package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/kitten/prosemd-lsp/internal/cache"
	"github.com/kitten/prosemd-lsp/internal/check"
	"github.com/kitten/prosemd-lsp/internal/config"
	"github.com/kitten/prosemd-lsp/internal/engine"
	"github.com/kitten/prosemd-lsp/internal/manager"
	"github.com/kitten/prosemd-lsp/internal/scheduler"
)

var log = commonlog.GetLogger("prosemd.server")

const lsName = "prosemd"

// EngineFactory builds the grammar engine for a configuration.
type EngineFactory func(cfg config.Config) (engine.Engine, error)

// LanguageTool is the default EngineFactory.
func LanguageTool(cfg config.Config) (engine.Engine, error) {
	return engine.NewLanguageTool(cfg.EngineURL, cfg.Language, http.DefaultClient), nil
}

type Server struct {
	handler   *protocol.Handler
	version   string
	base      config.Config
	newEngine EngineFactory

	ctx    context.Context
	cancel context.CancelFunc

	config    config.Config
	manager   *manager.DocumentManager
	cache     *cache.SuggestionCache
	checker   *check.Checker
	scheduler *scheduler.Scheduler

	mu        sync.Mutex
	published map[string][]protocol.Diagnostic
}

type Option func(*Server)

// WithConfig sets the configuration that initializationOptions are applied on.
func WithConfig(cfg config.Config) Option {
	return func(s *Server) { s.base = cfg }
}

func WithEngineFactory(f EngineFactory) Option {
	return func(s *Server) { s.newEngine = f }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func New(opts ...Option) *Server {
	s := &Server{
		base:      config.Default(),
		newEngine: LanguageTool,
		manager:   manager.NewDocumentManager(),
		published: make(map[string][]protocol.Diagnostic),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.handler = &protocol.Handler{
		Initialize:             s.initialize,
		Initialized:            s.initialized,
		Shutdown:               s.shutdown,
		SetTrace:               s.setTrace,
		TextDocumentDidOpen:    s.textDocumentDidOpen,
		TextDocumentDidChange:  s.textDocumentDidChange,
		TextDocumentDidClose:   s.textDocumentDidClose,
		TextDocumentCodeAction: s.textDocumentCodeAction,
	}
	return s
}

// NewServer creates a protocol server ready to run on any glsp transport.
func NewServer(debug bool, opts ...Option) (*server.Server, error) {
	s := New(opts...)
	return server.NewServer(s.handler, lsName, debug), nil
}

func (s *Server) setTrace(context *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}
