package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"timeclock/internal/api/response"
	"timeclock/internal/export"
	"timeclock/internal/service"
	"timeclock/internal/shift"
	"timeclock/pkg/validator"

	"github.com/go-chi/chi/v5"
)

const (
	maxBatchSize   = 1000
	maxExportDays  = 366
	defaultDays    = 7
	contentTypeCSV = "text/csv; charset=utf-8"
	contentTypeXLS = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Ingester stores uploaded clock events.
type Ingester interface {
	Ingest(batch []shift.RawEvent) (service.IngestResult, error)
}

// Reporter is the read side the HTTP API exposes.
type Reporter interface {
	Shifts(userID uint) ([]shift.Shift, shift.Diagnostics, error)
	Totals(userID uint) (shift.Totals, error)
	AllTotals() ([]service.UserTotals, shift.Totals, error)
	Anomalies(scope service.AnomalyScope) (shift.Anomalies, error)
	Diagnostics() (shift.Diagnostics, error)
	Timesheets(userIDs []uint, r shift.DateRange) ([]export.Timesheet, error)
	Location() *time.Location
	Now() time.Time
}

type TimeclockHandler interface {
	IngestEvents(w http.ResponseWriter, r *http.Request)
	UserShifts(w http.ResponseWriter, r *http.Request)
	UserTotals(w http.ResponseWriter, r *http.Request)
	AllTotals(w http.ResponseWriter, r *http.Request)
	Anomalies(w http.ResponseWriter, r *http.Request)
	Diagnostics(w http.ResponseWriter, r *http.Request)
	TimesheetCSV(w http.ResponseWriter, r *http.Request)
	TimesheetXLSX(w http.ResponseWriter, r *http.Request)
}

type timeclockHandlerImpl struct {
	clock   Ingester
	reports Reporter
}

func NewTimeclockHandler(clock Ingester, reports Reporter) TimeclockHandler {
	return &timeclockHandlerImpl{
		clock:   clock,
		reports: reports,
	}
}

type IngestRequest struct {
	Events []shift.RawEvent `json:"events"`
}

func (req IngestRequest) Validate() error {
	var errs validator.ValidationErrors
	if len(req.Events) == 0 {
		errs.Add("events", "at least one event is required")
	}
	if len(req.Events) > maxBatchSize {
		errs.Add("events", fmt.Sprintf("at most %d events per request", maxBatchSize))
	}
	return errs.Err()
}

type shiftsResponse struct {
	Shifts      []shift.Shift     `json:"shifts"`
	Diagnostics shift.Diagnostics `json:"diagnostics"`
}

type allTotalsResponse struct {
	Users []service.UserTotals `json:"users"`
	Sum   shift.Totals         `json:"sum"`
}

// IngestEvents implements TimeclockHandler.
func (h *timeclockHandlerImpl) IngestEvents(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	result, err := h.clock.Ingest(req.Events)
	if err != nil {
		slog.Error("Failed to ingest events", "error", err)
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Events ingested", result)
}

// UserShifts implements TimeclockHandler.
func (h *timeclockHandlerImpl) UserShifts(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	shifts, diag, err := h.reports.Shifts(userID)
	if err != nil {
		slog.Error("Failed to load shifts", "error", err, "user_id", userID)
		response.HandleError(w, err)
		return
	}
	if shifts == nil {
		shifts = []shift.Shift{}
	}

	meta := h.meta()
	meta.TotalItems = len(shifts)
	response.SuccessWithMeta(w, shiftsResponse{Shifts: shifts, Diagnostics: diag}, meta)
}

// UserTotals implements TimeclockHandler.
func (h *timeclockHandlerImpl) UserTotals(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	totals, err := h.reports.Totals(userID)
	if err != nil {
		slog.Error("Failed to compute totals", "error", err, "user_id", userID)
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, totals, h.meta())
}

// AllTotals implements TimeclockHandler.
func (h *timeclockHandlerImpl) AllTotals(w http.ResponseWriter, r *http.Request) {
	rows, sum, err := h.reports.AllTotals()
	if err != nil {
		slog.Error("Failed to compute totals", "error", err)
		response.HandleError(w, err)
		return
	}

	meta := h.meta()
	meta.TotalItems = len(rows)
	response.SuccessWithMeta(w, allTotalsResponse{Users: rows, Sum: sum}, meta)
}

// Anomalies implements TimeclockHandler.
func (h *timeclockHandlerImpl) Anomalies(w http.ResponseWriter, r *http.Request) {
	scope := service.AnomalyScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = service.ScopeToday
	}
	if !validator.IsInSlice(string(scope), []string{string(service.ScopeToday), string(service.ScopeAll)}) {
		response.HandleError(w, validator.ValidationErrors{
			{Field: "scope", Message: "must be one of: today, all"},
		})
		return
	}

	a, err := h.reports.Anomalies(scope)
	if err != nil {
		slog.Error("Failed to detect anomalies", "error", err)
		response.HandleError(w, err)
		return
	}

	meta := h.meta()
	meta.TotalItems = a.Count()
	response.SuccessWithMeta(w, a, meta)
}

// Diagnostics implements TimeclockHandler.
func (h *timeclockHandlerImpl) Diagnostics(w http.ResponseWriter, r *http.Request) {
	diag, err := h.reports.Diagnostics()
	if err != nil {
		slog.Error("Failed to compute diagnostics", "error", err)
		response.HandleError(w, err)
		return
	}
	response.Success(w, diag)
}

// TimesheetCSV implements TimeclockHandler.
func (h *timeclockHandlerImpl) TimesheetCSV(w http.ResponseWriter, r *http.Request) {
	h.timesheet(w, r, "csv", contentTypeCSV, export.WriteCSV)
}

// TimesheetXLSX implements TimeclockHandler.
func (h *timeclockHandlerImpl) TimesheetXLSX(w http.ResponseWriter, r *http.Request) {
	h.timesheet(w, r, "xlsx", contentTypeXLS, export.WriteXLSX)
}

func (h *timeclockHandlerImpl) timesheet(
	w http.ResponseWriter,
	r *http.Request,
	ext, contentType string,
	write func(w io.Writer, sheets []export.Timesheet, loc *time.Location) error,
) {
	userID, ok := userIDParam(w, r)
	if !ok {
		return
	}

	dr, err := h.dateRange(r)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	sheets, err := h.reports.Timesheets([]uint{userID}, dr)
	if err != nil {
		slog.Error("Failed to build timesheet", "error", err, "user_id", userID)
		response.HandleError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, sheets, h.reports.Location()); err != nil {
		slog.Error("Failed to write timesheet", "error", err, "format", ext)
		response.InternalServerError(w, "Failed to write timesheet")
		return
	}

	filename := fmt.Sprintf("timesheet-%d-%s-%s.%s",
		userID, dr.From.Format("20060102"), dr.To.Format("20060102"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// dateRange reads ?from= and ?to= (YYYY-MM-DD). Missing bounds default to the
// last seven days ending today.
func (h *timeclockHandlerImpl) dateRange(r *http.Request) (shift.DateRange, error) {
	loc := h.reports.Location()
	dr := shift.LastDays(h.reports.Now(), defaultDays, loc)

	var errs validator.ValidationErrors
	q := r.URL.Query()
	if s := q.Get("from"); s != "" {
		from, ok := validator.ParseDate(s, loc)
		if !ok {
			errs.Add("from", "must be a date in YYYY-MM-DD format")
		}
		dr.From = from
	}
	if s := q.Get("to"); s != "" {
		to, ok := validator.ParseDate(s, loc)
		if !ok {
			errs.Add("to", "must be a date in YYYY-MM-DD format")
		}
		dr.To = to
	}
	if err := errs.Err(); err != nil {
		return dr, err
	}

	if dr.To.Before(dr.From) {
		errs.Add("to", "must not be before from")
	} else if dr.DayCount(loc) > maxExportDays {
		errs.Add("to", fmt.Sprintf("range must not exceed %d days", maxExportDays))
	}
	return dr, errs.Err()
}

func (h *timeclockHandlerImpl) meta() *response.Meta {
	return &response.Meta{
		ReferenceInstant: h.reports.Now().Format(time.RFC3339),
		Timezone:         h.reports.Location().String(),
	}
}

func userIDParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(w, "Invalid user id", map[string]string{"userID": "must be a positive integer"})
		return 0, false
	}
	return uint(id), true
}
