// Package stream serves an annotated frame sequence as an MJPEG stream so a
// labelled dataset can be reviewed from a browser on a headless machine.
package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hybridgroup/mjpeg"
	"github.com/rs/cors"
)

const shutdownGrace = 3 * time.Second

// Server publishes JPEG frames to every connected HTTP client.
type Server struct {
	stream *mjpeg.Stream
	srv    *http.Server
}

// New builds a server that will listen on addr once ListenAndServe runs.
func New(addr string) *Server {
	s := mjpeg.NewStream()

	router := mux.NewRouter()
	router.HandleFunc("/", s.ServeHTTP)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	return &Server{
		stream: s,
		srv: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Publish pushes the next frame to every connected viewer. Frames must be
// encoded JPEG bytes.
func (s *Server) Publish(frame []byte) {
	s.stream.UpdateJPEG(frame)
}

// ListenAndServe serves until ctx is cancelled, then drains connections and
// returns nil. Any other listener failure is returned as-is.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
