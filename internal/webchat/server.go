package webchat

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dlchat/internal/directline"
	"dlchat/internal/reconciler"
	"dlchat/pkg/logging"
)

//go:embed templates/index.html
var indexHTML string

// Config configures the web chat server.
type Config struct {
	// Host to bind to. Default: localhost.
	Host string

	// Port to listen on.
	Port int

	// BotName is shown in the page header and transcript.
	BotName string

	// ConfigPath is an optional config file to watch. When it changes, the
	// handler set with SetConfigChangeHandler runs after a debounce.
	ConfigPath string

	// Await tunes the per-message response polling.
	Await reconciler.Options
}

// Server serves the chat page and its JSON API.
type Server struct {
	cfg      Config
	sessions *registry
	tmpl     *template.Template

	clientMu sync.RWMutex
	client   *directline.Client

	onConfigChange func()

	// refreshGroup deduplicates concurrent token refreshes per conversation.
	refreshGroup singleflight.Group
}

// NewServer creates a web chat server over the given Direct Line client.
func NewServer(client *directline.Client, cfg Config) (*Server, error) {
	tmpl, err := template.New("index").Funcs(sprig.HtmlFuncMap()).Parse(indexHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chat page template: %w", err)
	}

	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	return &Server{
		cfg:      cfg,
		client:   client,
		sessions: newRegistry(),
		tmpl:     tmpl,
	}, nil
}

// SetConfigChangeHandler registers the callback for config file changes.
// Must be called before Run.
func (s *Server) SetConfigChangeHandler(fn func()) {
	s.onConfigChange = fn
}

// SetClient swaps the Direct Line client. New conversations use the new
// client; running sessions keep the one they started with, since their
// tokens are conversation-scoped anyway.
func (s *Server) SetClient(client *directline.Client) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	s.client = client
}

func (s *Server) currentClient() *directline.Client {
	s.clientMu.RLock()
	defer s.clientMu.RUnlock()
	return s.client
}

// Addr returns the address the server binds to.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Run serves until ctx is cancelled. The config watcher, when configured,
// runs alongside the HTTP listener and stops with it.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Info("WebChat", "Serving chat on http://%s", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if s.cfg.ConfigPath != "" && s.onConfigChange != nil {
		watcher, err := newConfigWatcher(s.cfg.ConfigPath, s.onConfigChange)
		if err != nil {
			logging.Warn("WebChat", "Config watching disabled: %v", err)
		} else {
			g.Go(func() error {
				watcher.run(ctx)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
