package region_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region/memcache"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

func TestMappingRegionDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	m := region.Mapping{"Пермь": "Пермский край"}
	assert.Equal(t, "Пермский край", m.Region("Пермь"))
	assert.Equal(t, vacancy.RegionUnknown, m.Region("Нарния"))
	assert.Equal(t, vacancy.RegionUnknown, region.Mapping{}.Region("Пермь"))
}

func TestFlattenHeadHunterAreas(t *testing.T) {
	t.Parallel()

	payload := `[
		{
			"name": "Россия",
			"areas": [
				{
					"name": "Пермский край",
					"areas": [
						{"name": "Пермь", "areas": []},
						{"name": "Березники", "areas": []}
					]
				},
				{"name": "Москва", "areas": []}
			]
		}
	]`

	mapping, err := region.FlattenHeadHunterAreas(json.RawMessage(payload))
	require.NoError(t, err)

	assert.Equal(t, "Пермский край", mapping["Пермь"])
	assert.Equal(t, "Пермский край", mapping["Березники"])
	// A childless region maps to itself.
	assert.Equal(t, "Москва", mapping["Москва"])
	_, ok := mapping["Россия"]
	assert.False(t, ok, "country names must not appear in the mapping")
}

func TestFlattenHeadHunterAreasBadPayload(t *testing.T) {
	t.Parallel()

	_, err := region.FlattenHeadHunterAreas(json.RawMessage(`{"not":"a list"}`))
	assert.Error(t, err)
}

func TestFlattenSuperJobRegions(t *testing.T) {
	t.Parallel()

	payload := `[
		{
			"title": "Россия",
			"towns": [
				{"title": "Москва"},
				{"title": "Санкт-Петербург"}
			],
			"regions": [
				{
					"title": "Свердловская область",
					"towns": [{"title": "Екатеринбург"}]
				},
				{"title": "Адыгея", "towns": []}
			]
		}
	]`

	mapping, err := region.FlattenSuperJobRegions(json.RawMessage(payload))
	require.NoError(t, err)

	// Top-level towns map to themselves.
	assert.Equal(t, "Москва", mapping["Москва"])
	assert.Equal(t, "Санкт-Петербург", mapping["Санкт-Петербург"])
	assert.Equal(t, "Свердловская область", mapping["Екатеринбург"])
	assert.Equal(t, "Адыгея", mapping["Адыгея"])
}

func TestResolverRebuildsOnMissAndCaches(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[
			{"name": "Россия", "areas": [
				{"name": "Татарстан", "areas": [{"name": "Казань", "areas": []}]}
			]}
		]`))
	}))
	defer srv.Close()

	cache := memcache.New()
	client := httpclient.New(httpclient.Config{}, nil)
	resolver := region.NewResolver(cache, client, region.Config{HeadHunterAreasURL: srv.URL}, nil)

	mapping, err := resolver.Resolve(context.Background(), vacancy.PlatformHeadHunter)
	require.NoError(t, err)
	assert.Equal(t, "Татарстан", mapping.Region("Казань"))
	assert.Equal(t, 1, calls)

	// Second resolve is served from the cache.
	mapping, err = resolver.Resolve(context.Background(), vacancy.PlatformHeadHunter)
	require.NoError(t, err)
	assert.Equal(t, "Татарстан", mapping.Region("Казань"))
	assert.Equal(t, 1, calls)
}

func TestResolverCacheHitSkipsUpstream(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("upstream must not be called on a cache hit")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cache := memcache.New()
	require.NoError(t, cache.Store(context.Background(), vacancy.PlatformSuperJob, region.Mapping{
		"Екатеринбург": "Свердловская область",
	}))

	client := httpclient.New(httpclient.Config{}, nil)
	resolver := region.NewResolver(cache, client, region.Config{SuperJobRegionsURL: srv.URL}, nil)

	mapping, err := resolver.Resolve(context.Background(), vacancy.PlatformSuperJob)
	require.NoError(t, err)
	assert.Equal(t, "Свердловская область", mapping.Region("Екатеринбург"))
}

func TestResolveOrEmptyDegradesToUnknown(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := httpclient.New(httpclient.Config{MaxRetries: 1}, nil)
	resolver := region.NewResolver(memcache.New(), client, region.Config{HeadHunterAreasURL: srv.URL}, nil)

	mapping := resolver.ResolveOrEmpty(context.Background(), vacancy.PlatformHeadHunter)
	assert.NotNil(t, mapping)
	assert.Equal(t, vacancy.RegionUnknown, mapping.Region("Пермь"))
}

func TestResolvePushSourceHasEmptyMapping(t *testing.T) {
	t.Parallel()

	resolver := region.NewResolver(memcache.New(), httpclient.New(httpclient.Config{}, nil), region.Config{}, nil)

	mapping, err := resolver.Resolve(context.Background(), vacancy.PlatformTelegram)
	require.NoError(t, err)
	assert.Empty(t, mapping)
}
