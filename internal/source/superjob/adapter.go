// Package superjob adapts the SuperJob API. The listing call already carries
// full payloads, so detail fetches are served from the memoized listing.
package superjob

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/parse"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Config points the adapter at the vacancies endpoint. APIKey fills the
// X-Api-App-Id header required on every call.
type Config struct {
	BaseURL string
	APIKey  string
}

// Adapter implements vacancy.SourceAdapter for SuperJob.
type Adapter struct {
	client *httpclient.Client
	cfg    Config
	logger *zap.Logger

	mu   sync.Mutex
	memo map[string]json.RawMessage
}

// New constructs an Adapter.
func New(client *httpclient.Client, cfg Config, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.superjob.ru/2.0/vacancies"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		client: client,
		cfg:    cfg,
		logger: logger,
		memo:   make(map[string]json.RawMessage),
	}
}

// Platform identifies the source.
func (a *Adapter) Platform() vacancy.Platform {
	return vacancy.PlatformSuperJob
}

type listingPayload struct {
	Objects []json.RawMessage `json:"objects"`
}

type objectID struct {
	ID int64 `json:"id"`
}

// FetchListing runs the search query. The full payload comes back inline, so
// each object is memoized by id for the subsequent FetchDetail calls.
func (a *Adapter) FetchListing(ctx context.Context, params vacancy.SearchParams) ([]string, error) {
	query := url.Values{}
	if params.Query != "" {
		query.Set("keyword", params.Query)
	}
	if params.Area != "" {
		query.Set("town", params.Area)
	}
	if params.PerPage > 0 {
		query.Set("count", strconv.Itoa(params.PerPage))
	}

	raw, err := a.client.GetJSON(ctx, a.cfg.BaseURL, query, a.headers())
	if err != nil {
		return nil, err
	}
	var payload listingPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if len(payload.Objects) == 0 {
		return nil, &vacancy.UpstreamEmptyError{Platform: a.Platform()}
	}

	ids := make([]string, 0, len(payload.Objects))
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, obj := range payload.Objects {
		var ref objectID
		if err := json.Unmarshal(obj, &ref); err != nil || ref.ID == 0 {
			a.logger.Warn("listing object without id skipped", zap.Error(err))
			continue
		}
		id := strconv.FormatInt(ref.ID, 10)
		a.memo[id] = obj
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, &vacancy.UpstreamEmptyError{Platform: a.Platform()}
	}
	return ids, nil
}

// FetchDetail serves the memoized listing object; the API needs no second
// round trip.
func (a *Adapter) FetchDetail(_ context.Context, id string) (json.RawMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	obj, ok := a.memo[id]
	if !ok {
		return nil, fmt.Errorf("vacancy %s not present in the last listing", id)
	}
	return obj, nil
}

func (a *Adapter) headers() http.Header {
	h := http.Header{}
	if a.cfg.APIKey != "" {
		h.Set("X-Api-App-Id", a.cfg.APIKey)
	}
	return h
}

type clientData struct {
	Title string            `json:"title"`
	Town  parse.NamedObject `json:"town"`
}

type objectPayload struct {
	ID            int64               `json:"id"`
	Profession    string              `json:"profession"`
	PaymentFrom   int                 `json:"payment_from"`
	PaymentTo     int                 `json:"payment_to"`
	Currency      string              `json:"currency"`
	Client        clientData          `json:"client"`
	Town          parse.NamedObject   `json:"town"`
	Experience    parse.NamedObject   `json:"experience"`
	TypeOfWork    parse.NamedObject   `json:"type_of_work"`
	PlaceOfWork   parse.NamedObject   `json:"place_of_work"`
	Education     parse.NamedObject   `json:"education"`
	Catalogues    []parse.NamedObject `json:"catalogues"`
	RichText      string              `json:"vacancyRichText"`
	Address       string              `json:"address"`
	Phone         string              `json:"phone"`
	DatePublished int64               `json:"date_published"`
	Link          string              `json:"link"`
}

// Transform maps one raw listing object into the canonical shape.
func (a *Adapter) Transform(raw json.RawMessage, regions vacancy.RegionMapping) (vacancy.Record, error) {
	var item objectPayload
	if err := json.Unmarshal(raw, &item); err != nil {
		return vacancy.Record{}, fmt.Errorf("decode object: %w", err)
	}
	id := strconv.FormatInt(item.ID, 10)
	if item.Profession == "" {
		return vacancy.Record{}, &vacancy.TransformError{Identifier: id, Field: "title"}
	}

	city := item.Town.Label()
	rec := vacancy.Record{
		Platform:    a.Platform(),
		ExternalID:  id,
		Title:       item.Profession,
		CompanyName: item.Client.Title,
		CityName:    city,
		Region:      regions.Region(city),
		Salary:      parse.Salary(optionalInt(item.PaymentFrom), optionalInt(item.PaymentTo), item.Currency),
		URL:         item.Link,
		Experience:  item.Experience.Label(),
		Employment:  item.TypeOfWork.Label(),
		WorkFormat:  item.PlaceOfWork.Label(),
		Schedule:    item.TypeOfWork.Label(),
		Skills:      parse.JoinNames(item.Catalogues, ", "),
		Education:   item.Education.Label(),
		Description: parse.PlainText(item.RichText),
		Address:     item.Address,
		Contacts:    item.Phone,
		PublishedAt: publishedAt(item.DatePublished),
	}
	return rec, nil
}

// optionalInt treats the API's zero as "no bound".
func optionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func publishedAt(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
