package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	health_module "github.com/ethanbaker/minutes/internal/api/modules/health"
	meetings_module "github.com/ethanbaker/minutes/internal/api/modules/meetings"
)

// Options configures the HTTP engine
type Options struct {
	Port           string
	AllowedOrigins []string
	APIKey         string
	UploadDir      string

	// Metrics serves /metrics; nil uses the default Prometheus registry
	Metrics http.Handler
}

// NewEngine builds the gin engine with every module registered
func NewEngine(opts Options, meetings *meetings_module.Controller) *gin.Engine {
	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	metrics := opts.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	engine.GET("/metrics", gin.WrapH(metrics))

	if opts.UploadDir != "" {
		engine.Static("/uploads", opts.UploadDir)
	}

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)
	meetings_module.RegisterRoutes(baseGroup, meetings, opts.APIKey)

	return engine
}

// Serve runs the engine until ctx is cancelled, then drains open requests
func Serve(ctx context.Context, opts Options, engine *gin.Engine) error {
	port := opts.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[API-MAIN]: Listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("[API-MAIN]: Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
