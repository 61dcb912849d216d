package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

const maxChannelBatch = 1000

// ingestHeadHunter handles POST /v1/ingest/headhunter?query=&area=&per_page=.
// Query parameters override the configured defaults. The full run report is
// returned: 200 when the run completed (even with skipped records), 502 when
// the listing fetch failed and the run was aborted.
func (s *Server) ingestHeadHunter(w http.ResponseWriter, r *http.Request) {
	s.runIngest(w, r, vacancy.PlatformHeadHunter, "area")
}

// ingestSuperJob handles POST /v1/ingest/superjob?query=&town=&count=.
func (s *Server) ingestSuperJob(w http.ResponseWriter, r *http.Request) {
	s.runIngest(w, r, vacancy.PlatformSuperJob, "town")
}

func (s *Server) runIngest(w http.ResponseWriter, r *http.Request, platform vacancy.Platform, areaParam string) {
	adapter, ok := s.adapters[platform]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown platform")
		return
	}

	params := s.defaults[platform]
	q := r.URL.Query()
	if v := q.Get("query"); v != "" {
		params.Query = v
	}
	if v := q.Get(areaParam); v != "" {
		params.Area = v
	}
	for _, name := range []string{"per_page", "count"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid "+name)
			return
		}
		params.PerPage = n
	}

	report := s.pipeline.Run(r.Context(), adapter, params)
	status := http.StatusOK
	if report.Status == vacancy.ReportStatusError {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, report)
}

// channelMessages handles POST /v1/channel/messages. The body is a JSON
// array of pushed channel messages; the batch is transformed and persisted
// with the same partial-failure rules as a board run.
func (s *Server) channelMessages(w http.ResponseWriter, r *http.Request) {
	adapter, ok := s.adapters[vacancy.PlatformTelegram]
	if !ok {
		writeError(w, http.StatusNotFound, "channel source not configured")
		return
	}

	var messages []vacancy.ChannelMessage
	if err := json.NewDecoder(r.Body).Decode(&messages); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(messages) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch")
		return
	}
	if len(messages) > maxChannelBatch {
		writeError(w, http.StatusRequestEntityTooLarge, "batch too large")
		return
	}

	report := s.pipeline.RunChannelBatch(r.Context(), adapter, messages)
	writeJSON(w, http.StatusOK, report)
}
