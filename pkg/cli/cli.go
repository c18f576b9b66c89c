package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	loadEnvFiles(ctx)

	cmd := &cli.Command{
		Name:    "courseguide",
		Usage:   "Course recommendation assistant backed by an LLM",
		Version: version,
		Commands: []*cli.Command{
			serveCommand(),
			chatCommand(),
			askCommand(),
			catalogCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		logging.From(ctx).Error("command failed", "error", err)
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// loadEnvFiles reads .env.local and .env when present. Variables already set
// in the environment win.
func loadEnvFiles(ctx context.Context) {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil {
			var pathErr *fs.PathError
			if !errors.As(err, &pathErr) {
				logging.From(ctx).Warn("failed to load env file", "file", name, "error", err)
			}
		}
	}
}
