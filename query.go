package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const defaultDay = "7"

var errInvalidDay = errors.New("day must be an integer")

// channelAliases maps raw order source labels onto the channel names reported in the sheet.
// Sources not listed here are reported as they are.
var channelAliases = []struct {
	Channel string
	Sources []string
}{
	{Channel: "Facebook", Sources: []string{"Ladipage Facebook", "Webcake"}},
	{Channel: "Tiktok", Sources: []string{"Ladipage Tiktok"}},
}

func normalizeChannel(source string) string {
	for _, alias := range channelAliases {
		for _, s := range alias.Sources {
			if s == source {
				return alias.Channel
			}
		}
	}
	return source
}

// channelCaseSQL renders channelAliases as a CASE expression over column.
func channelCaseSQL(column string) string {
	var b strings.Builder
	b.WriteString("CASE\n")
	for _, alias := range channelAliases {
		quoted := make([]string, len(alias.Sources))
		for i, s := range alias.Sources {
			quoted[i] = quoteSQLString(s)
		}
		if len(quoted) == 1 {
			fmt.Fprintf(&b, "        WHEN %s = %s THEN %s\n", column, quoted[0], quoteSQLString(alias.Channel))
		} else {
			fmt.Fprintf(&b, "        WHEN %s IN (%s) THEN %s\n", column, strings.Join(quoted, ", "), quoteSQLString(alias.Channel))
		}
	}
	fmt.Fprintf(&b, "        ELSE %s\n      END", column)
	return b.String()
}

func quoteSQLString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

const exportQueryTemplate = `
    SELECT
      DATE(DATETIME_ADD(pos.inserted_at, INTERVAL 7 HOUR)) AS date_insert,
      pos.brand,
      %s AS channel,
      JSON_VALUE(item, '$.variation_info.display_id') AS sku,
      JSON_VALUE(item, '$.variation_info.name') AS product_name,
      price.gia_ban_daily AS daily_price,
      SUM(SAFE_CAST(JSON_VALUE(item, '$.quantity') AS INT64)) AS total_quantity,
      SUM(SAFE_CAST(JSON_VALUE(item, '$.quantity') AS INT64)) * IFNULL(price.gia_ban_daily, 0) AS total_amount
    FROM ` + "`%s`" + ` AS pos
    CROSS JOIN UNNEST(items) AS item
    LEFT JOIN (
      SELECT
        ma_sku AS sku,
        gia_ban_daily
      FROM ` + "`%s`" + `
    ) AS price
      ON JSON_VALUE(item, '$.variation_info.display_id') = price.sku
    WHERE DATE(pos.inserted_at) >= DATE_SUB(CURRENT_DATE(), INTERVAL @day_before DAY)
      AND DATE(pos.inserted_at) < CURRENT_DATE()
    GROUP BY
      date_insert,
      pos.brand,
      channel,
      sku,
      product_name,
      daily_price
    ORDER BY
      date_insert,
      pos.brand
`

// buildExportQuery returns the export SQL for the given tables and the parameters to bind.
func buildExportQuery(day, ordersTable, pricesTable string) (string, []bigquery.QueryParameter, error) {
	days, err := parseDay(day)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf(exportQueryTemplate, channelCaseSQL("pos.order_sources_name"), ordersTable, pricesTable)
	params := []bigquery.QueryParameter{
		{Name: "day_before", Value: days},
	}
	return sql, params, nil
}

// parseDay accepts only an integer; callers supply defaultDay when day is absent.
func parseDay(day string) (int64, error) {
	days, err := strconv.ParseInt(strings.TrimSpace(day), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidDay, day)
	}
	return days, nil
}

// exportWindow is the [from, to) date range the export query covers when run at now.
func exportWindow(now time.Time, days int64) (from, to civil.Date) {
	to = civil.DateOf(now.UTC())
	from = to.AddDays(-int(days))
	return from, to
}

// Warehouse runs the export query.
type Warehouse interface {
	Query(ctx context.Context, day string) (*Table, error)
}

type bigQueryWarehouse struct {
	client      *bigquery.Client
	ordersTable string
	pricesTable string
}

func newBigQueryWarehouse(client *bigquery.Client, ordersTable, pricesTable string) *bigQueryWarehouse {
	return &bigQueryWarehouse{
		client:      client,
		ordersTable: ordersTable,
		pricesTable: pricesTable,
	}
}

func (w *bigQueryWarehouse) Query(ctx context.Context, day string) (*Table, error) {
	sql, params, err := buildExportQuery(day, w.ordersTable, w.pricesTable)
	if err != nil {
		return nil, err
	}

	query := w.client.Query(sql)
	query.Parameters = params

	it, err := query.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("run export query: %w", err)
	}
	return collectTable(it, func() bigquery.Schema { return it.Schema })
}
