// Package tasks implements scheduled maintenance tasks for the bot.
package tasks

import (
	"log/slog"

	"github.com/mvoronin/relobot/internal/config"
	"github.com/mvoronin/relobot/internal/database"
	"github.com/mvoronin/relobot/internal/pipeline"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Pipeline *pipeline.Pipeline
	Config   *config.Config
}
