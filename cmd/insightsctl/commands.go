package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/radiusdt/marketing-insights/internal/config"
	"github.com/radiusdt/marketing-insights/internal/database"
	"github.com/radiusdt/marketing-insights/internal/heatmap"
	"github.com/radiusdt/marketing-insights/internal/models"
	"github.com/radiusdt/marketing-insights/internal/storage"
	"github.com/radiusdt/marketing-insights/internal/views"
)

func newViewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "List the available views",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, v := range views.Views {
				fmt.Fprintln(cmd.OutOrStdout(), v)
			}
		},
	}
}

func newViewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "view <name>",
		Short: "Render one dashboard view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, ok := views.ParseView(args[0])
			if !ok {
				return fmt.Errorf("unknown view %q", args[0])
			}

			s, err := c.open(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer s.Close()

			if c.format == formatTable {
				payload, err := s.views.Payload(cmd.Context(), views.Request{View: view})
				if err != nil {
					return err
				}
				return printTable(cmd.OutOrStdout(), payload)
			}

			body, err := s.views.Render(cmd.Context(), views.Request{View: view})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), body)
		},
	}
}

func newHeatMapCmd(c *cli) *cobra.Command {
	var renderer, metric string

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Render the region heat map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kind, err := heatmap.ParseKind(renderer)
			if err != nil {
				return err
			}
			m, ok := models.ParseMetric(metric)
			if !ok {
				return fmt.Errorf("unknown metric %q", metric)
			}

			s, err := c.open(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer s.Close()

			if c.format == formatTable {
				hm, err := s.views.HeatMap(cmd.Context(), kind, m)
				if err != nil {
					return err
				}
				return printTable(cmd.OutOrStdout(), hm)
			}

			body, err := s.views.Render(cmd.Context(), views.Request{HeatMap: kind, Metric: m})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.Flags().StringVar(&renderer, "renderer", string(heatmap.KindBubble), "heat map renderer: bubble or geo")
	cmd.Flags().StringVar(&metric, "metric", string(models.MetricRevenue), "metric to plot")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write the aggregated groups of the current dataset to ClickHouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.file != "" {
				return fmt.Errorf("export uses the configured source; --file is not supported")
			}
			s, err := c.open(cmd.Context(), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer s.Close()

			if s.app.Sink == nil {
				return fmt.Errorf("export requires INSIGHTS_CLICKHOUSE_ENABLED=true")
			}
			res, err := s.views.Export(cmd.Context(), s.app.Sink)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if c.format == formatTable {
				fmt.Fprintf(out, "batch %s: %s rows from %s\n", res.BatchID, humanize.Comma(int64(res.Rows)), res.Dataset)
				for _, dim := range sortedKeys(res.ByDimension) {
					fmt.Fprintf(out, "  %-12s %s\n", dim, humanize.Comma(int64(res.ByDimension[dim])))
				}
				return nil
			}
			return json.NewEncoder(out).Encode(res)
		},
	}
}

func newImportCmd(c *cli) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store a dataset document in PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			data, err := models.DecodeMarketingData(raw)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if name == "" {
				name = cfg.Source.Dataset
			}

			db, err := database.NewPostgresDB(cmd.Context(), cfg.Database, c.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			src := storage.NewPostgresSource(db.Pool, name)
			if err := src.EnsureSchema(cmd.Context()); err != nil {
				return err
			}
			if err := src.Save(cmd.Context(), raw); err != nil {
				return err
			}

			c.logger.Info("dataset imported", zap.String("dataset", name), zap.Int("campaigns", len(data.Campaigns)))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %q: %d campaigns, %s\n",
				name, len(data.Campaigns), humanize.Bytes(uint64(len(raw))))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "dataset name (defaults to INSIGHTS_SOURCE_DATASET)")
	return cmd
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return raw, nil
}

func writeJSON(w io.Writer, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
