package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/app"
	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/middleware"
	"github.com/radiusdt/marketing-insights/internal/storage"
	"github.com/radiusdt/marketing-insights/internal/views"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

// cli carries the persistent flags shared by every command.
type cli struct {
	file     string
	format   string
	logLevel string

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:          "insightsctl",
		Short:        "Render marketing insight views from the command line",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if c.format != formatJSON && c.format != formatTable {
				return fmt.Errorf("unknown format %q (want %s or %s)", c.format, formatJSON, formatTable)
			}
			logger, err := middleware.NewLogger(config.LogConfig{Level: c.logLevel, Format: "console"})
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.file, "file", "f", "",
		"read the dataset from a JSON file instead of the configured source (- for stdin)")
	root.PersistentFlags().StringVar(&c.format, "format", formatJSON, "output format: json or table")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newViewsCmd(),
		newViewCmd(c),
		newHeatMapCmd(c),
		newExportCmd(c),
		newImportCmd(c),
	)
	return root
}

// session is an opened view service plus whatever must be closed afterwards.
type session struct {
	views *views.Service
	app   *app.App
}

func (s *session) Close() {
	if s.app != nil {
		_ = s.app.Close()
	}
}

// open builds the view service. With --file the dataset is read directly and no backend
// is contacted; otherwise the environment configuration is used as the server does.
func (c *cli) open(ctx context.Context, stdin io.Reader) (*session, error) {
	if c.file == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		a, err := app.New(ctx, cfg, c.logger)
		if err != nil {
			return nil, err
		}
		return &session{views: a.Views, app: a}, nil
	}

	var src storage.DatasetSource
	if c.file == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		src = storage.NewStaticSource("stdin", raw)
	} else {
		src = storage.NewFileSource(filepath.Clean(c.file))
	}

	locator, err := app.NewLocator(config.GeoConfig{CountryFallback: true})
	if err != nil {
		return nil, err
	}
	opts := views.DefaultOptions()
	opts.RefreshInterval = 0
	return &session{views: views.NewService(src, c.logger, opts, views.WithLocator(locator))}, nil
}
