// Package app wires a workspace together: config, database, migrations,
// logger, engine. The CLI and the server both start from here.
package app

import (
	"database/sql"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"boardflow/internal/config"
	"boardflow/internal/db"
	"boardflow/internal/engine"
	"boardflow/internal/migrate"
)

type App struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Engine    engine.Engine
	Logger    zerolog.Logger
}

// Open loads the workspace config, opens the database, runs pending
// migrations and builds the engine.
func Open(workspace string) (*App, error) {
	cfg, err := config.Load(workspace)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(os.Stderr)
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &App{
		Workspace: workspace,
		Config:    cfg,
		DB:        conn,
		Engine:    engine.New(conn, cfg, logger),
		Logger:    logger,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// NewLogger builds the process logger. BOARDFLOW_LOG_LEVEL selects the
// level (default info); BOARDFLOW_LOG_FORMAT=console switches from JSON
// to human-readable output.
func NewLogger(w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if raw := os.Getenv("BOARDFLOW_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		}
	}
	if strings.EqualFold(os.Getenv("BOARDFLOW_LOG_FORMAT"), "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
