// Package headhunter adapts the HeadHunter API: a paged listing of vacancy
// ids followed by one detail fetch per id.
package headhunter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/parse"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Config points the adapter at the vacancies endpoint.
type Config struct {
	BaseURL   string
	UserAgent string
}

// Adapter implements vacancy.SourceAdapter for HeadHunter.
type Adapter struct {
	client *httpclient.Client
	cfg    Config
	logger *zap.Logger
}

// New constructs an Adapter.
func New(client *httpclient.Client, cfg Config, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.hh.ru/vacancies"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "HH-User-Agent"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{client: client, cfg: cfg, logger: logger}
}

// Platform identifies the source.
func (a *Adapter) Platform() vacancy.Platform {
	return vacancy.PlatformHeadHunter
}

type listingPayload struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

// FetchListing runs the search query and returns the page's vacancy ids.
// Zero items is an UpstreamEmptyError: the run has nothing to process.
func (a *Adapter) FetchListing(ctx context.Context, params vacancy.SearchParams) ([]string, error) {
	query := url.Values{}
	if params.Query != "" {
		query.Set("text", params.Query)
	}
	if params.Area != "" {
		query.Set("area", params.Area)
	}
	if params.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(params.PerPage))
	}

	raw, err := a.client.GetJSON(ctx, a.cfg.BaseURL, query, a.headers())
	if err != nil {
		return nil, err
	}
	var payload listingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil, &vacancy.UpstreamEmptyError{Platform: a.Platform()}
	}
	ids := make([]string, 0, len(payload.Items))
	for _, item := range payload.Items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// FetchDetail retrieves the full record for one vacancy id.
func (a *Adapter) FetchDetail(ctx context.Context, id string) (json.RawMessage, error) {
	target := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/" + url.PathEscape(id)
	return a.client.GetJSON(ctx, target, nil, a.headers())
}

func (a *Adapter) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", a.cfg.UserAgent)
	return h
}

type salaryData struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
}

type addressData struct {
	Street   string `json:"street"`
	Building string `json:"building"`
}

type contactsData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type detailPayload struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Salary      *salaryData         `json:"salary"`
	Employer    parse.NamedObject   `json:"employer"`
	Area        parse.NamedObject   `json:"area"`
	URL         string              `json:"alternate_url"`
	Experience  parse.NamedObject   `json:"experience"`
	Employment  parse.NamedObject   `json:"employment"`
	Schedule    parse.NamedObject   `json:"schedule"`
	WorkFormat  []parse.NamedObject `json:"work_format"`
	KeySkills   []parse.NamedObject `json:"key_skills"`
	Description string              `json:"description"`
	Address     *addressData        `json:"address"`
	Contacts    *contactsData       `json:"contacts"`
	PublishedAt string              `json:"published_at"`
}

// Transform maps one raw detail record into the canonical shape.
func (a *Adapter) Transform(raw json.RawMessage, regions vacancy.RegionMapping) (vacancy.Record, error) {
	var item detailPayload
	if err := json.Unmarshal(raw, &item); err != nil {
		return vacancy.Record{}, fmt.Errorf("decode detail: %w", err)
	}
	if item.Name == "" {
		return vacancy.Record{}, &vacancy.TransformError{Identifier: item.ID, Field: "title"}
	}

	salary := parse.Negotiable
	if item.Salary != nil {
		salary = parse.Salary(item.Salary.From, item.Salary.To, item.Salary.Currency)
	}

	city := item.Area.Label()
	rec := vacancy.Record{
		Platform:    a.Platform(),
		ExternalID:  item.ID,
		Title:       item.Name,
		CompanyName: item.Employer.Label(),
		CityName:    city,
		Region:      regions.Region(city),
		Salary:      salary,
		URL:         item.URL,
		Experience:  item.Experience.Label(),
		Employment:  item.Employment.Label(),
		WorkFormat:  parse.JoinLabels(item.WorkFormat),
		Schedule:    item.Schedule.Label(),
		Skills:      parse.JoinNames(item.KeySkills, ", "),
		Description: parse.PlainText(item.Description),
		Address:     formatAddress(item.Address),
		Contacts:    formatContacts(item.Contacts),
		PublishedAt: parsePublishedAt(item.PublishedAt),
	}
	return rec, nil
}

func formatAddress(addr *addressData) string {
	if addr == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if addr.Street != "" {
		parts = append(parts, addr.Street)
	}
	if addr.Building != "" {
		parts = append(parts, addr.Building)
	}
	return strings.Join(parts, ", ")
}

func formatContacts(c *contactsData) string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, 2)
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	if c.Email != "" {
		parts = append(parts, c.Email)
	}
	return strings.Join(parts, ", ")
}

// parsePublishedAt accepts both RFC3339 and the compact numeric-zone form
// the API actually returns.
func parsePublishedAt(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05-0700"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts
		}
	}
	return time.Time{}
}
