package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/relaydesk/relaydesk/internal/api"
	"github.com/relaydesk/relaydesk/internal/attach"
	"github.com/relaydesk/relaydesk/internal/config"
	"github.com/relaydesk/relaydesk/internal/crypto"
	"github.com/relaydesk/relaydesk/internal/db"
	"github.com/relaydesk/relaydesk/internal/filter"
	"github.com/relaydesk/relaydesk/internal/resolver"
	"github.com/relaydesk/relaydesk/internal/smtp"
	syncengine "github.com/relaydesk/relaydesk/internal/sync"
	ws "github.com/relaydesk/relaydesk/internal/websocket"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseConnection(pool)

	log.Printf("Successfully connected to database")

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		log.Fatalf("Failed to create encryptor: %v", err)
	}

	store := db.NewStore(pool)
	hub := ws.NewHub(10)
	res := resolver.New(store)
	attachments := attach.NewStore(cfg.UploadDir)
	pipeline := syncengine.NewPipeline(store, res, attachments, filter.NewHeuristic(), hub)
	sender := smtp.NewSender(store, res, encryptor)

	supervisor := syncengine.NewSupervisor(store, pipeline, encryptor, syncengine.Options{
		MinSyncInterval: cfg.SyncMinInterval,
		FetchWindow:     cfg.SyncFetchWindow,
		ReconnectDelay:  cfg.ReconnectDelay,
		HealthInterval:  cfg.HealthSweepInterval,
	})
	if err := supervisor.Start(ctx); err != nil {
		log.Fatalf("Failed to start sync supervisor: %v", err)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(store, supervisor, sender, hub),
	}

	go func() {
		log.Printf("RelayDesk server starting on %s (environment: %s)", server.Addr, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	supervisor.Shutdown()
}

// newRouter wires the HTTP surface. There is no auth middleware; this server
// sits behind a trusted reverse proxy.
func newRouter(store *db.Store, supervisor *syncengine.Supervisor, sender *smtp.Sender, hub *ws.Hub) http.Handler {
	syncHandler := api.NewSyncHandler(supervisor)
	sendHandler := api.NewSendHandler(sender)
	wsHandler := api.NewWebSocketHandler(store, hub)

	mux := http.NewServeMux()

	mux.HandleFunc("/", handleRoot)

	// /api/v1/mailboxes/{id}/sync and /api/v1/mailboxes/{id}/send
	mux.HandleFunc("/api/v1/mailboxes/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/sync"):
			syncHandler.Handle(w, r)
		case strings.HasSuffix(r.URL.Path, "/send"):
			sendHandler.Handle(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	mux.HandleFunc("/api/v1/ws", wsHandler.Handle)

	return mux
}

func handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "RelayDesk sync engine is running")
}
