package main

import (
	"context"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"random-pictures/internal/logging"
	"random-pictures/internal/memory"
	"random-pictures/internal/startup"
)

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to an optional YAML config file",
			Sources: cli.EnvVars("CONFIG_FILE"),
		},
		&cli.StringFlag{Name: "root", Usage: "Image root directory (overrides IMG_ROOT_DIR)"},
		&cli.StringFlag{Name: "port", Usage: "HTTP port (overrides PORT)"},
		&cli.StringFlag{Name: "metrics-port", Usage: "Metrics port (overrides METRICS_PORT)"},
		&cli.DurationFlag{Name: "refresh-interval", Usage: "Catalog rescan interval (overrides REFRESH_INTERVAL)"},
		&cli.IntFlag{Name: "home-page-size", Usage: "Categories per page (overrides HOME_PAGE_SIZE)"},
		&cli.IntFlag{Name: "category-page-size", Usage: "Images per page (overrides CATEGORY_PAGE_SIZE)"},
		&cli.BoolFlag{Name: "watch", Usage: "Rescan early on filesystem events (overrides WATCH_ENABLED)"},
		&cli.StringFlag{Name: "database-dir", Usage: "Scan history directory, empty disables (overrides DATABASE_DIR)"},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (overrides LOG_LEVEL)"},
	}
}

// overrides applies the flags given on the command line on top of the
// file and environment configuration.
func overrides(cmd *cli.Command) func(*startup.Config) {
	return func(c *startup.Config) {
		if cmd.IsSet("root") {
			c.RootDir = cmd.String("root")
		}
		if cmd.IsSet("port") {
			c.Port = cmd.String("port")
		}
		if cmd.IsSet("metrics-port") {
			c.MetricsPort = cmd.String("metrics-port")
		}
		if cmd.IsSet("refresh-interval") {
			c.RefreshInterval = cmd.Duration("refresh-interval")
		}
		if cmd.IsSet("home-page-size") {
			c.HomePageSize = int(cmd.Int("home-page-size"))
		}
		if cmd.IsSet("category-page-size") {
			c.CategoryPageSize = int(cmd.Int("category-page-size"))
		}
		if cmd.IsSet("watch") {
			c.WatchEnabled = cmd.Bool("watch")
		}
		if cmd.IsSet("database-dir") {
			c.DatabaseDir = cmd.String("database-dir")
		}
		if cmd.IsSet("log-level") {
			c.LogLevel = cmd.String("log-level")
		}
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	startTime := time.Now()

	// Before anything allocates large buffers.
	memory.ConfigureFromEnv()

	startup.PrintBanner()

	config, err := startup.LoadConfig(startup.LoadOptions{
		File:     cmd.String("config"),
		Override: overrides(cmd),
	})
	if err != nil {
		return err
	}
	startup.LogConfig(config)

	return run(ctx, config, startTime)
}

func main() {
	cmd := &cli.Command{
		Name:    "random-pictures",
		Usage:   "Serve random and paginated images from a directory of categories",
		Version: startup.Version,
		Flags:   flags(),
		Action:  serve,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logging.Fatal("%v", err)
	}
}
