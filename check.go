package main

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/sheets/v4"
)

type probeResult struct {
	Name    string      `json:"name"`
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func warehouseProbes(ordersTable, pricesTable string) []struct{ name, query string } {
	return []struct{ name, query string }{
		{"Basic query", "SELECT 1 AS test_value"},
		{"Orders table", fmt.Sprintf("SELECT COUNT(*) AS row_count FROM `%s`", ordersTable)},
		{"Orders with items", fmt.Sprintf("SELECT inserted_at, brand, order_sources_name, items FROM `%s` LIMIT 1", ordersTable)},
		{"Price table", fmt.Sprintf("SELECT ma_sku, gia_ban_daily FROM `%s` LIMIT 1", pricesTable)},
	}
}

// checkWarehouse runs each probe and reports its first row or its error.
func checkWarehouse(ctx context.Context, client *bigquery.Client, ordersTable, pricesTable string) []probeResult {
	var results []probeResult
	for _, probe := range warehouseProbes(ordersTable, pricesTable) {
		result := probeResult{Name: probe.name}

		it, err := client.Query(probe.query).Read(ctx)
		if err != nil {
			result.Error = err.Error()
			results = append(results, logProbe(result))
			continue
		}

		var row map[string]bigquery.Value
		err = it.Next(&row)
		if err != nil && err != iterator.Done {
			result.Error = err.Error()
			results = append(results, logProbe(result))
			continue
		}
		result.Success = true
		result.Result = row
		results = append(results, logProbe(result))
	}
	return results
}

func checkSpreadsheet(ctx context.Context, srv *sheets.Service, spreadsheetID string) probeResult {
	result := probeResult{Name: "Spreadsheet access"}
	spreadsheet, err := srv.Spreadsheets.Get(spreadsheetID).Fields("properties.title,sheets.properties.title").Context(ctx).Do()
	if err != nil {
		result.Error = err.Error()
		return logProbe(result)
	}

	var titles []string
	for _, s := range spreadsheet.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	title := ""
	if spreadsheet.Properties != nil {
		title = spreadsheet.Properties.Title
	}
	result.Success = true
	result.Result = map[string]interface{}{
		"title":      title,
		"worksheets": titles,
	}
	return logProbe(result)
}

func logProbe(result probeResult) probeResult {
	if result.Success {
		log.Info().Str("probe", result.Name).Interface("result", result.Result).Msg("probe succeeded")
	} else {
		log.Error().Str("probe", result.Name).Str("error", result.Error).Msg("probe failed")
	}
	return result
}
