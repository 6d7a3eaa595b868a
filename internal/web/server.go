// Package web exposes the clip board over HTTP as a JSON API plus raw
// screenshot serving. It is a thin surface over the reconciliation
// engine; no handler touches storage directly except the screenshot
// routes, which stream blobs.
package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/snipboard/internal/assets"
	"github.com/hpungsan/snipboard/internal/engine"
	"github.com/hpungsan/snipboard/internal/gateway"
)

// NewServer creates and configures the HTTP server for the SnipBoard
// API.
func NewServer(eng *engine.Engine, gw *gateway.Local, cache *assets.URLCache, version, bind string, port int) *http.Server {
	h := &Handlers{
		engine:  eng,
		gw:      gw,
		cache:   cache,
		version: version,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/clips", h.HandleClipList)
	mux.HandleFunc("POST /api/clips", h.HandleClipSave)
	mux.HandleFunc("GET /api/clips/{id}", h.HandleClipDetail)
	mux.HandleFunc("DELETE /api/clips/{id}", h.HandleClipDelete)
	mux.HandleFunc("POST /api/clips/order", h.HandleClipOrder)

	mux.HandleFunc("GET /api/sections", h.HandleSectionList)
	mux.HandleFunc("POST /api/sections", h.HandleSectionCreate)
	mux.HandleFunc("PATCH /api/sections/{id}", h.HandleSectionPatch)
	mux.HandleFunc("DELETE /api/sections/{id}", h.HandleSectionDelete)
	mux.HandleFunc("POST /api/sections/order", h.HandleSectionOrder)
	mux.HandleFunc("POST /api/sections/active", h.HandleSectionActivate)

	mux.HandleFunc("GET /screenshots/{filename}", h.HandleScreenshotGet)
	mux.HandleFunc("POST /api/screenshots", h.HandleScreenshotSave)

	mux.HandleFunc("POST /api/capture", h.HandleCapture)

	mux.HandleFunc("GET /api/health", h.HandleHealth)

	handler := securityHeaders(mux)

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: handler,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on
// SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Printf("SnipBoard API running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Printf("WARNING: Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
