package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/lexa/internal"
	pkgconfig "github.com/starford/lexa/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func importDeck(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: lexa import <file.md|file.xlsx>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	imp, err := internal.Import(ctx, path, internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	fmt.Printf("%s: group %q, %d pairs (%d added, %d updated)\n",
		imp.Path, imp.GroupID, imp.Pairs, imp.Added, imp.Updated)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "lexa",
		Usage:  "Vocabulary drills with spaced review levels and unlockable word groups",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, library watcher and reminders (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve drill tools over MCP stdio",
				Action: mcp,
			},
			{
				Name:      "import",
				Usage:     "Import one deck file into the library and store",
				ArgsUsage: "<file>",
				Action:    importDeck,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
