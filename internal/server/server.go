// Package server wires the HTTP API and admin surface over the aggregation
// core.
package server

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/basicauth"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/rs/zerolog"

	"tubedigest/internal/config"
	"tubedigest/internal/feed"
	"tubedigest/internal/kv"
	"tubedigest/internal/metrics"
	"tubedigest/internal/prefs"
	"tubedigest/internal/snapshot"
)

// Server holds the handler dependencies.
type Server struct {
	cfg      *config.Config
	prefs    *prefs.Store
	pipeline *feed.Pipeline
	resolver *feed.Resolver
	snap     *snapshot.Store
	records  kv.Store
	log      zerolog.Logger
}

// New creates the API server.
func New(cfg *config.Config, p *prefs.Store, pipeline *feed.Pipeline, resolver *feed.Resolver, snap *snapshot.Store, records kv.Store, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		prefs:    p,
		pipeline: pipeline,
		resolver: resolver,
		snap:     snap,
		records:  records,
		log:      log.With().Str("component", "server").Logger(),
	}
}

// App builds the Fiber application with the middleware stack and all
// routes. Mutating routes sit behind basic auth.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "tubedigest",
		ServerHeader: "tubedigest",
	})

	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(s.requestLogger())
	app.Use(metrics.Middleware())

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())
	app.Get("/videos.json", s.getVideos)

	api := app.Group("/api")
	api.Get("/categories", s.listCategories)
	api.Get("/settings/duration", s.getDuration)
	api.Get("/stats", s.getStats)

	admin := api.Group("", basicauth.New(basicauth.Config{
		Authorizer: s.authorize,
	}))
	admin.Post("/categories", s.addCategory)
	admin.Delete("/categories/:name", s.deleteCategory)
	admin.Post("/channels", s.addChannel)
	admin.Delete("/channels/:name", s.deleteChannel)
	admin.Put("/settings/duration", s.setDuration)
	admin.Post("/refresh", s.refresh)
	admin.Delete("/cache/channels/:name", s.evictChannel)
	admin.Get("/admin/keys", s.listKeys)
	admin.Delete("/admin/keys/:key", s.deleteKey)
	admin.Post("/admin/backup", s.backup)

	return app
}

func (s *Server) authorize(user, pass string, _ fiber.Ctx) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.AdminPassword)) == 1
	return userOK && passOK
}

// requestLogger logs each request as structured JSON. Raw client IPs are
// hashed for correlation without storing PII.
func (s *Server) requestLogger() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		evt := s.log.Info()
		if status >= 500 {
			evt = s.log.Error()
		} else if status >= 400 {
			evt = s.log.Warn()
		}

		evt.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("duration_ms", time.Since(start)).
			Str("ip_hash", hashIP(c.IP())).
			Int("bytes_sent", len(c.Response().Body())).
			Msg("request")

		return err
	}
}

func hashIP(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])[:12]
}
