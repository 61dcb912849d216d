package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

const (
	defaultVacancyLimit = 50
	maxVacancyLimit     = 500
	listTimeout         = 3 * time.Second
)

// listVacancies handles GET /v1/vacancies?platform=&limit=. It returns a
// JSON object {"vacancies": [...], "total": N} for one platform, 400 for
// invalid filters, or 500 if the store call fails.
func (s *Server) listVacancies(w http.ResponseWriter, r *http.Request) {
	platform, err := parsePlatform(r.URL.Query().Get("platform"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r, defaultVacancyLimit, maxVacancyLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), listTimeout)
	defer cancel()

	records, err := s.store.ListRecent(ctx, platform, limit)
	if err != nil {
		s.logger.Error("list vacancies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list vacancies")
		return
	}
	total, err := s.store.CountByPlatform(ctx, platform)
	if err != nil {
		s.logger.Error("count vacancies failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to count vacancies")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vacancies": toVacancyDTOs(records),
		"total":     total,
	})
}

func parsePlatform(input string) (vacancy.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "headhunter":
		return vacancy.PlatformHeadHunter, nil
	case "superjob":
		return vacancy.PlatformSuperJob, nil
	case "telegram":
		return vacancy.PlatformTelegram, nil
	case "":
		return "", errors.New("platform is required")
	default:
		return "", errors.New("invalid platform")
	}
}

func parseLimit(r *http.Request, def, maxLimit int) (int, error) {
	limStr := r.URL.Query().Get("limit")
	if limStr == "" {
		return def, nil
	}
	val, err := strconv.Atoi(limStr)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	if val > maxLimit {
		val = maxLimit
	}
	return val, nil
}

func toVacancyDTOs(in []vacancy.Record) []vacancyDTO {
	out := make([]vacancyDTO, 0, len(in))
	for _, rec := range in {
		dto := vacancyDTO{
			Platform:   string(rec.Platform),
			ExternalID: rec.ExternalID,
			Title:      rec.Title,
			Company:    rec.CompanyName,
			City:       rec.CityName,
			Region:     rec.Region,
			Salary:     rec.Salary,
			URL:        rec.URL,
			Experience: rec.Experience,
			Employment: rec.Employment,
			CreatedAt:  rec.CreatedAt,
		}
		if !rec.PublishedAt.IsZero() {
			published := rec.PublishedAt
			dto.PublishedAt = &published
		}
		out = append(out, dto)
	}
	return out
}

type vacancyDTO struct {
	Platform    string     `json:"platform"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Company     string     `json:"company,omitempty"`
	City        string     `json:"city,omitempty"`
	Region      string     `json:"region"`
	Salary      string     `json:"salary"`
	URL         string     `json:"url,omitempty"`
	Experience  string     `json:"experience,omitempty"`
	Employment  string     `json:"employment,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
