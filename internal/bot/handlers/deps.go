package handlers

import (
	"log/slog"

	"github.com/mvoronin/relobot/internal/config"
	"github.com/mvoronin/relobot/internal/database"
	"github.com/mvoronin/relobot/internal/pipeline"
	"github.com/mvoronin/relobot/internal/texts"
)

// HandlerDeps provides dependencies for Telegram command and message handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline *pipeline.Pipeline
	Texts    *texts.Catalog
	Sessions *Sessions
}
