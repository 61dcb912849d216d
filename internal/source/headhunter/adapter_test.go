package headhunter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

const sampleDetail = `{
	"id": "93353083",
	"name": "Python разработчик",
	"salary": {"from": 100000, "to": 150000, "currency": "RUR"},
	"employer": {"name": "Хекслет"},
	"area": {"name": "Пермь"},
	"alternate_url": "https://hh.ru/vacancy/93353083",
	"experience": {"name": "От 1 года до 3 лет"},
	"employment": {"name": "Полная занятость"},
	"schedule": {"name": "Удаленная работа"},
	"work_format": [{"name": "Удаленно"}],
	"key_skills": [{"name": "Python"}, {"name": "Django"}],
	"description": "<p>Ищем <b>разработчика</b></p>",
	"address": {"street": "ул. Ленина", "building": "1"},
	"contacts": {"name": "Анна", "email": "hr@example.com"},
	"published_at": "2024-01-15T10:30:00+0300"
}`

func newAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	client := httpclient.New(httpclient.Config{MaxRetries: 1}, nil)
	return New(client, Config{BaseURL: baseURL, UserAgent: "test-agent"}, nil)
}

func TestFetchListing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Python", r.URL.Query().Get("text"))
		assert.Equal(t, "3", r.URL.Query().Get("area"))
		assert.Equal(t, "4", r.URL.Query().Get("per_page"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"items": [{"id": "1"}, {"id": "2"}]}`))
	}))
	defer srv.Close()

	adapter := newAdapter(t, srv.URL)
	ids, err := adapter.FetchListing(context.Background(), vacancy.SearchParams{
		Query:   "Python",
		Area:    "3",
		PerPage: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)
}

func TestFetchListingEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	adapter := newAdapter(t, srv.URL)
	_, err := adapter.FetchListing(context.Background(), vacancy.SearchParams{Query: "Python"})

	var emptyErr *vacancy.UpstreamEmptyError
	require.True(t, errors.As(err, &emptyErr))
	assert.Equal(t, vacancy.PlatformHeadHunter, emptyErr.Platform)
}

func TestFetchDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/93353083", r.URL.Path)
		_, _ = w.Write([]byte(sampleDetail))
	}))
	defer srv.Close()

	adapter := newAdapter(t, srv.URL)
	raw, err := adapter.FetchDetail(context.Background(), "93353083")
	require.NoError(t, err)
	assert.JSONEq(t, sampleDetail, string(raw))
}

func TestTransform(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t, "http://unused")
	regions := region.Mapping{"Пермь": "Пермский край"}

	rec, err := adapter.Transform(json.RawMessage(sampleDetail), regions)
	require.NoError(t, err)

	assert.Equal(t, vacancy.PlatformHeadHunter, rec.Platform)
	assert.Equal(t, "93353083", rec.ExternalID)
	assert.Equal(t, "Python разработчик", rec.Title)
	assert.Equal(t, "Хекслет", rec.CompanyName)
	assert.Equal(t, "Пермь", rec.CityName)
	assert.Equal(t, "Пермский край", rec.Region)
	assert.Equal(t, "от 100000 до 150000 RUR", rec.Salary)
	assert.Equal(t, "https://hh.ru/vacancy/93353083", rec.URL)
	assert.Equal(t, "От 1 года до 3 лет", rec.Experience)
	assert.Equal(t, "Полная занятость", rec.Employment)
	assert.Equal(t, "Удаленно", rec.WorkFormat)
	assert.Equal(t, "Удаленная работа", rec.Schedule)
	assert.Equal(t, "Python, Django", rec.Skills)
	assert.Equal(t, "Ищем разработчика", rec.Description)
	assert.Equal(t, "ул. Ленина, 1", rec.Address)
	assert.Equal(t, "Анна, hr@example.com", rec.Contacts)

	want := time.Date(2024, 1, 15, 10, 30, 0, 0, time.FixedZone("", 3*3600))
	assert.True(t, rec.PublishedAt.Equal(want), "published_at mismatch: %v", rec.PublishedAt)
}

func TestTransformNoSalary(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t, "http://unused")
	raw := json.RawMessage(`{"id": "1", "name": "Вакансия", "salary": null}`)

	rec, err := adapter.Transform(raw, region.Mapping{})
	require.NoError(t, err)
	assert.Equal(t, vacancy.SalaryNegotiable, rec.Salary)
	assert.Equal(t, vacancy.RegionUnknown, rec.Region)
}

func TestTransformMissingTitle(t *testing.T) {
	t.Parallel()

	adapter := newAdapter(t, "http://unused")
	_, err := adapter.Transform(json.RawMessage(`{"id": "42"}`), region.Mapping{})

	var terr *vacancy.TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "42", terr.Identifier)
	assert.Equal(t, "title", terr.Field)
}

func TestParsePublishedAt(t *testing.T) {
	t.Parallel()

	assert.False(t, parsePublishedAt("2024-01-15T10:30:00+03:00").IsZero())
	assert.False(t, parsePublishedAt("2024-01-15T10:30:00+0300").IsZero())
	assert.True(t, parsePublishedAt("").IsZero())
	assert.True(t, parsePublishedAt("not a date").IsZero())
}
