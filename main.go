// main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"google.golang.org/api/sheets/v4"
)

var interruptSignals = []os.Signal{
	os.Interrupt,
	syscall.SIGTERM,
	syscall.SIGINT,
}

func main() {
	app := &cli.App{
		Name:  "sales-sheet-export",
		Usage: "Export daily SKU sales from BigQuery into the shared Google Sheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP listen port (overrides PORT)"},
		},
		Action: serveCommand,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve GET /export",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP listen port (overrides PORT)"}},
				Action: serveCommand,
			},
			{
				Name:  "export",
				Usage: "Run one export and print the summary",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "day", Aliases: []string{"d"}, Value: defaultDay, Usage: "Number of days before today to export"},
				},
				Action: exportCommand,
			},
			{
				Name:   "check",
				Usage:  "Check access to the warehouse tables and the spreadsheet",
				Action: checkCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("sales-sheet-export failed")
	}
}

// clients bundles what every command needs.
type clients struct {
	config        Config
	warehouse     *bigQueryWarehouse
	sheets        *sheets.Service
	spreadsheetID string
	close         func()
}

func setup(ctx context.Context) (*clients, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupLogger(config)

	spreadsheetID, err := spreadsheetIDFromURL(config.GSheetURL)
	if err != nil {
		return nil, err
	}

	bqClient, err := newBigQueryClient(ctx, config)
	if err != nil {
		return nil, err
	}

	srv, err := newSheetsService(ctx, config.GSheetKeyPath)
	if err != nil {
		bqClient.Close()
		return nil, err
	}

	return &clients{
		config:        config,
		warehouse:     newBigQueryWarehouse(bqClient, config.OrdersTable, config.PricesTable),
		sheets:        srv,
		spreadsheetID: spreadsheetID,
		close:         func() { bqClient.Close() },
	}, nil
}

func setupLogger(config Config) {
	if !config.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func (a *clients) exportService() *exporter {
	return newExporter(a.warehouse, newSheetPublisher(a.sheets, a.spreadsheetID))
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, interruptSignals...)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	port := a.config.Port
	if p := c.String("port"); p != "" {
		port = p
	}

	log.Info().Str("env", a.config.Environment).Str("port", port).Msg("running export service")
	server := NewServer(a.config, a.exportService())
	return server.Start(ctx, fmt.Sprintf("0.0.0.0:%s", port))
}

func exportCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, interruptSignals...)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.exportService().Export(log.Logger.WithContext(ctx), c.String("day"))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func checkCommand(c *cli.Context) error {
	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	results := checkWarehouse(c.Context, a.warehouse.client, a.config.OrdersTable, a.config.PricesTable)
	results = append(results, checkSpreadsheet(c.Context, a.sheets, a.spreadsheetID))

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(results))
	}
	log.Info().Int("checks", len(results)).Msg("all checks passed")
	return nil
}
