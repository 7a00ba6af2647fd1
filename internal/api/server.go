// Package api exposes the ranked view and loop controls over HTTP and a
// websocket stream.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"BlockScreener/internal/model"
	"BlockScreener/internal/recorder"
	"BlockScreener/internal/snapshot"
)

// Controller is the refresh loop surface driven by the API.
type Controller interface {
	Refresh(source string) bool
	Pause(source string) bool
	Resume(source string) bool
	Status() model.Status
}

// Snapshots provides the latest ranked view and a push stream.
type Snapshots interface {
	Latest() *snapshot.Snapshot
	Subscribe() (<-chan *snapshot.Snapshot, func())
}

// Annotations is the user annotation store.
type Annotations interface {
	All() map[string]model.Annotation
	Get(code string) (model.Annotation, bool)
	Put(code string, a model.Annotation) (model.Annotation, error)
	Delete(code string) error
}

// Response is the JSON envelope of every endpoint.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(data any, message string) Response {
	return Response{Success: true, Message: message, Data: data}
}

func fail(err string) Response {
	return Response{Success: false, Error: err}
}

// Server wires controllers into a gin engine.
type Server struct {
	engine *gin.Engine
}

// NewServer builds the router. rec may be nil.
func NewServer(ctl Controller, snaps Snapshots, notes Annotations, rec recorder.Recorder) *Server {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(RecoveryMiddleware, RequestLogger)

	api := r.Group("/api")
	NewHealthController().RegisterRoutes(api)
	NewViewController(ctl, snaps, rec).RegisterRoutes(api)
	NewAnnotationController(notes, ctl, rec).RegisterRoutes(api)

	NewStream(snaps).RegisterRoutes(r)
	return &Server{engine: r}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
