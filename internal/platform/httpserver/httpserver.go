package httpserver

import (
	"net/http"
	"time"
)

// New builds the engine's HTTP server. Uploads go to object storage via
// presigned URLs, so request bodies stay small and the timeouts can be tight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
