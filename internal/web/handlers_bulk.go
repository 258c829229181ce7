package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/csvcodec"
	"github.com/JonMunkholm/tollbatch/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and the other fields.
const multipartOverhead = 1 << 20

type startRunResponse struct {
	RunID     string `json:"run_id"`
	FileName  string `json:"file_name"`
	TotalRows int    `json:"total_rows"`
}

type headerErrorResponse struct {
	ErrorResponse
	HeaderErrors []string `json:"header_errors"`
}

// handleBulkUpload validates an uploaded CSV and starts a run when it is
// valid. An invalid file is answered with 422: a JSON message for header
// problems, or the annotated error report as a CSV download for row
// problems.
func (s *Server) handleBulkUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Bulk.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			respondError(w, r, csvcodec.ErrFileTooLarge, 0)
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile, 0)
		return
	}
	defer file.Close()

	prepared, err := s.service.Prepare(file, header.Filename, r.FormValue("encoding"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	logger := logging.FromContext(r.Context())

	if len(prepared.Report.HeaderErrors) > 0 {
		verr := prepared.Report.Err()
		msg := core.MapError(verr)
		logger.Info("bulk upload rejected", "file", header.Filename, "error", verr)
		writeJSON(w, http.StatusUnprocessableEntity, headerErrorResponse{
			ErrorResponse: ErrorResponse{
				Error:   verr.Error(),
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			},
			HeaderErrors: prepared.Report.HeaderErrors,
		})
		return
	}

	if prepared.ErrorReport != nil {
		logger.Info("bulk upload has invalid rows",
			"file", header.Filename,
			"invalid_rows", len(prepared.Report.InvalidRows),
		)
		sink := responseSink{w: w, status: http.StatusUnprocessableEntity}
		if err := core.ExportValidationErrors(sink, prepared.ErrorReport); err != nil {
			logger.Error("failed to write validation report", "error", err)
		}
		return
	}

	runID, err := s.service.StartRun(r.Context(), prepared)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusAccepted, startRunResponse{
		RunID:     runID,
		FileName:  prepared.FileName,
		TotalRows: prepared.Table.DataRowCount(),
	})
}

// handleBulkProgress streams run progress via Server-Sent Events.
// Supports resumption via lastEventId query parameter for reconnection.
func (s *Server) handleBulkProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	// The event ID is the number of rows processed, so a reconnecting
	// client can skip events it already has.
	lastEventIDStr := r.URL.Query().Get("lastEventId")
	if lastEventIDStr == "" {
		lastEventIDStr = r.Header.Get("Last-Event-ID")
	}
	lastEventID, _ := strconv.Atoi(lastEventIDStr)

	progressCh, err := s.service.SubscribeProgress(runID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	var last core.RunProgress
	for {
		select {
		case progress, ok := <-progressCh:
			if !ok {
				data, _ := json.Marshal(last)
				fmt.Fprintf(w, "event: complete\ndata: %s\n\n", data)
				flusher.Flush()
				return
			}
			last = progress

			if lastEventIDStr != "" && progress.Current <= lastEventID && !progress.Phase.Finished() {
				continue
			}

			data, _ := json.Marshal(progress)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", progress.Current, data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleBulkRun returns a progress snapshot.
func (s *Server) handleBulkRun(w http.ResponseWriter, r *http.Request) {
	progress, err := s.service.RunProgress(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

// handleBulkResult downloads the results file of a finished run.
func (s *Server) handleBulkResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.FinishedResult(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("X-Run-Phase", string(res.Phase))
	if err := core.ExportResults(responseSink{w: w}, res.Output); err != nil {
		logging.FromContext(r.Context()).Error("failed to write results", "run_id", res.RunID, "error", err)
	}
}

// handleBulkCancel stops a run before its next row.
func (s *Server) handleBulkCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelRun(chi.URLParam(r, "runID")); err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelling"})
}

// handleBulkHistory lists recently finished runs.
func (s *Server) handleBulkHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)

	runs, err := s.service.History(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if runs == nil {
		runs = []core.RunSummary{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleBulkStatus reports run slot usage.
func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.LimiterStatus())
}

// handleBulkTemplate downloads an empty bulk file with the required header.
func (s *Server) handleBulkTemplate(w http.ResponseWriter, r *http.Request) {
	if err := core.ExportTemplate(responseSink{w: w}); err != nil {
		logging.FromContext(r.Context()).Error("failed to write template", "error", err)
	}
}

// parseIntParam extracts a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
