package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/eventform/internal/export"
)

// ReportService renders the response store as CSV.
type ReportService struct {
	state          *State
	now            func() time.Time
	defaultQuoting export.Quoting
	logger         *slog.Logger
}

// NewReportService constructs a report service. defaultQuoting applies when a
// request does not name a quoting mode.
func NewReportService(state *State, now func() time.Time, defaultQuoting export.Quoting) *ReportService {
	return NewReportServiceWithLogger(state, now, defaultQuoting, nil)
}

// NewReportServiceWithLogger constructs a report service with a specified logger.
func NewReportServiceWithLogger(state *State, now func() time.Time, defaultQuoting export.Quoting, logger *slog.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	if defaultQuoting == "" {
		defaultQuoting = export.QuotingLegacy
	}
	return &ReportService{state: state, now: now, defaultQuoting: defaultQuoting, logger: defaultLogger(logger)}
}

// Export renders the responses selected by params. An empty response store
// yields ErrNothingToExport; a filter matching nothing yields a header-only
// document.
func (s *ReportService) Export(ctx context.Context, params ExportParams) (result ExportResult, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("ReportService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "Export", "event_filter", params.EventID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "export not produced", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "responses exported", "rows", result.Rows, "file_name", result.FileName)
	}()

	quoting := s.defaultQuoting
	if params.Quoting != "" {
		parsed, parseErr := export.ParseQuoting(params.Quoting)
		if parseErr != nil {
			vErr := &ValidationError{}
			vErr.add("quote", parseErr.Error())
			err = vErr
			return
		}
		quoting = parsed
	}

	responses := s.state.Responses()
	if len(responses) == 0 {
		err = ErrNothingToExport
		return
	}

	filtered := filterResponses(responses, params.EventID)
	rows := make([]export.Row, 0, len(filtered))
	for _, response := range filtered {
		rows = append(rows, export.Row{
			Event:       response.EventName,
			FullName:    response.FullName,
			Email:       response.Email,
			Phone:       response.Phone,
			Title:       response.Title,
			Company:     response.Company,
			Intents:     response.Intents,
			SubmittedAt: response.SubmittedAt,
		})
	}

	var buf bytes.Buffer
	if err = export.Write(&buf, rows, quoting); err != nil {
		return
	}
	result = ExportResult{
		FileName: export.FileName(s.now()),
		Content:  buf.Bytes(),
		Rows:     len(rows),
	}
	return
}

func (s *ReportService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ReportService", operation, attrs...)
}
