package server

import (
	"net"
	"net/http"
	"time"

	"github.com/oggyb/matchfeed/internal/config"
)

// NewHTTPServer wraps the API handler with the listener address and timeouts.
// Write timeout leaves room for photo uploads.
func NewHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
