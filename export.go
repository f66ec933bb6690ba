package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type exportSummary struct {
	Status  string                   `json:"status"`
	Rows    int                      `json:"rows"`
	Columns []string                 `json:"columns"`
	Preview []map[string]interface{} `json:"preview"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// publishError marks a failure that happened after the query, while writing the worksheet.
type publishError struct {
	err error
}

func (e *publishError) Error() string { return e.err.Error() }
func (e *publishError) Unwrap() error { return e.err }

type exporter struct {
	warehouse Warehouse
	publisher Publisher
	now       func() time.Time
}

func newExporter(warehouse Warehouse, publisher Publisher) *exporter {
	return &exporter{
		warehouse: warehouse,
		publisher: publisher,
		now:       time.Now,
	}
}

// Export runs the query for day and overwrites the worksheet with the result.
func (e *exporter) Export(ctx context.Context, day string) (*exportSummary, error) {
	logger := log.Ctx(ctx)
	if days, err := parseDay(day); err == nil {
		from, to := exportWindow(e.now(), days)
		logger.Info().Str("day", day).Stringer("from", from).Stringer("to", to).Msg("running export query")
	}

	table, err := e.warehouse.Query(ctx, day)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("rows", table.Len()).Strs("columns", table.Columns).Msg("export query finished")

	if err := e.publisher.Publish(ctx, table); err != nil {
		return nil, &publishError{err: err}
	}
	logger.Info().Int("rows", table.Len()).Msg("worksheet replaced")

	columns := table.Columns
	if columns == nil {
		columns = []string{}
	}
	return &exportSummary{
		Status:  "success",
		Rows:    table.Len(),
		Columns: columns,
		Preview: table.Preview(previewRows),
	}, nil
}

func (s *Server) getExport(c *gin.Context) {
	day := c.DefaultQuery("day", defaultDay)
	ctx := requestLogger(c).WithContext(c.Request.Context())

	summary, err := s.exporter.Export(ctx, day)
	if err != nil {
		var pubErr *publishError
		if errors.As(err, &pubErr) {
			requestLogger(c).Error().Err(err).Msg("worksheet write failed")
			c.JSON(http.StatusInternalServerError, errorResponse{
				Status:  "error",
				Message: pubErr.Error(),
			})
			return
		}
		requestLogger(c).Error().Err(err).Str("day", day).Msg("export query failed")
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
