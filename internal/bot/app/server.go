// Package server hosts the bot webhook HTTP server.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/commands"
	"github.com/iammerus/twilio-whatsapp-fun/internal/bot/dispatch"
	botsqlite "github.com/iammerus/twilio-whatsapp-fun/internal/bot/storage/sqlite"
	"github.com/iammerus/twilio-whatsapp-fun/internal/telemetry"
	"github.com/iammerus/twilio-whatsapp-fun/internal/twilio"
)

// Config carries the settings the bot server needs to start.
type Config struct {
	Port   int
	DBPath string
}

// Server hosts the bot webhook endpoints.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *botsqlite.Store
	dispatcher *dispatch.Dispatcher
}

// New creates a configured bot server listening on the provided port.
func New(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}
	store, err := openBotStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	registry, err := commands.Bootstrap(commands.DefaultSet()...)
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, fmt.Errorf("bootstrap commands: %w", err)
	}
	dispatcher := dispatch.NewDispatcher(registry, store, telemetry.NewEmitter(store))

	server := &Server{
		listener:   listener,
		store:      store,
		dispatcher: dispatcher,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", server.handleWebhook)
	mux.HandleFunc("GET /healthz", server.handleHealthz)
	server.httpServer = &http.Server{Handler: mux}

	return server, nil
}

// Addr returns the listener address for the bot server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a bot server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the bot server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("bot server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	message, err := twilio.ParseInbound(r)
	if err != nil {
		log.Printf("reject webhook: %v", err)
		http.Error(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), dispatch.Inbound{
		SenderAddress: message.From,
		Body:          message.Body,
	})
	if err != nil {
		log.Printf("dispatch message sid=%s: %v", message.MessageSID, err)
		if writeErr := twilio.WriteMessagingResponse(w, "Something went wrong. Please try again."); writeErr != nil {
			log.Printf("write failure reply: %v", writeErr)
		}
		return
	}

	if err := twilio.WriteMessagingResponse(w, result.Reply); err != nil {
		log.Printf("write reply: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func openBotStore(path string) (*botsqlite.Store, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join("data", "wab.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := botsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bot sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close bot store: %v", err)
	}
}
