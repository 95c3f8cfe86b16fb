package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/kilianp07/derval/infra/logger"
)

// NewRouter registers the API routes. Requests under /api must carry
// "Authorization: Bearer <token>" when token is non-empty.
func NewRouter(h *Handler, token string) *gin.Engine {
	r := gin.New()
	r.Use(requestLogger(logger.New("api")), recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := r.Group("/api/v1", bearer(token))
	{
		v1.GET("/requirements", h.Requirements)
		v1.GET("/events", h.Events)
		v1.GET("/runs", h.Runs)
		v1.GET("/runs/:id/windows", h.Windows)
	}
	r.NoRoute(func(c *gin.Context) {
		abort(c, http.StatusNotFound, "NOT_FOUND", "no route for "+c.Request.URL.Path)
	})
	return r
}

// WithCORS wraps the router with CORS handling for the given origins.
func WithCORS(router http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return router
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)
}

// Serve runs the server until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func bearer(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token != "" && c.GetHeader("Authorization") != "Bearer "+token {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
			return
		}
		c.Next()
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	})
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(began))
	}
}
