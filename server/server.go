package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v3"

	"commune.social/core/config"
	"commune.social/core/db"
	"commune.social/core/federation"
	"commune.social/core/log"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:   "server",
		Usage:  "run a commune instance",
		Action: Run,
		Description: `
Environment variables:
	COMMUNE_FEDERATION_HOSTNAME             (required)
	COMMUNE_FEDERATION_SCHEME               (default: https)
	COMMUNE_FEDERATION_ALLOWED_DOMAINS      (comma-separated list)
	COMMUNE_FEDERATION_RETRY_ATTEMPTS       (default: 3)
	COMMUNE_FEDERATION_RETRY_BASE_DELAY     (default: 500ms)
	COMMUNE_FEDERATION_DELIVERY_CONCURRENCY (default: 8)
	COMMUNE_SERVER_LISTEN_ADDR              (default: 0.0.0.0:8536)
	COMMUNE_SERVER_DB_PATH                  (default: commune.db)
`,
	}
}

func Run(ctx context.Context, cmd *cli.Command) error {
	c, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.Setup(c.Server.DBPath)
	if err != nil {
		return fmt.Errorf("failed to load db: %w", err)
	}
	defer database.Close()

	return New(c, database).ListenAndServe()
}

// db.DB is the storage collaborator everywhere the federation core
// expects one.
var _ federation.Store = (*db.DB)(nil)

type Server struct {
	c  *config.Config
	db *db.DB
	l  *slog.Logger
}

func New(c *config.Config, database *db.DB) *Server {
	return &Server{
		c:  c,
		db: database,
		l:  log.New("server"),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/.well-known/webfinger", s.WebFinger)
	r.Get("/u/{name}", s.GetUser)
	r.Get("/c/{name}", s.GetCommunity)
	r.Get("/post/{id}", s.GetPost)
	r.Get("/comment/{id}", s.GetComment)

	return r
}

func (s *Server) ListenAndServe() error {
	s.l.Info("starting server", "addr", s.c.Server.ListenAddr)
	return http.ListenAndServe(s.c.Server.ListenAddr, s.Router())
}
