// Package region resolves raw city strings to region names using a flattened
// snapshot of each source's area hierarchy, cached behind a Cache.
package region

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/httpclient"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/metrics"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Mapping is a flat city-to-region snapshot for one source.
type Mapping map[string]string

// Region resolves a city, defaulting to the Unknown sentinel. Implements
// vacancy.RegionMapping.
func (m Mapping) Region(city string) string {
	if region, ok := m[city]; ok && region != "" {
		return region
	}
	return vacancy.RegionUnknown
}

// Cache persists one mapping snapshot per source. Absence (ok=false) means
// the mapping must be rebuilt from the source's area API.
type Cache interface {
	Load(ctx context.Context, platform vacancy.Platform) (Mapping, bool, error)
	Store(ctx context.Context, platform vacancy.Platform, m Mapping) error
	Invalidate(ctx context.Context, platform vacancy.Platform) error
}

// Config points the resolver at the per-source area hierarchy endpoints.
type Config struct {
	HeadHunterAreasURL string
	SuperJobRegionsURL string
}

// Resolver builds and caches city-to-region mappings.
type Resolver struct {
	cache  Cache
	client *httpclient.Client
	cfg    Config
	logger *zap.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(cache Cache, client *httpclient.Client, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cache:  cache,
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// Resolve returns the cached mapping for the platform, rebuilding it from
// the source's area API on a cache miss. The rebuilt snapshot is persisted
// before returning; a persist failure is logged, not fatal, since the
// mapping is derived data.
func (r *Resolver) Resolve(ctx context.Context, platform vacancy.Platform) (Mapping, error) {
	if cached, ok, err := r.cache.Load(ctx, platform); err != nil {
		r.logger.Warn("region cache load failed",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
	} else if ok {
		metrics.RecordRegionCacheEvent(string(platform), "hit")
		return cached, nil
	}
	metrics.RecordRegionCacheEvent(string(platform), "miss")

	mapping, err := r.rebuild(ctx, platform)
	if err != nil {
		metrics.RecordRegionCacheEvent(string(platform), "rebuild_failed")
		return nil, err
	}

	if err := r.cache.Store(ctx, platform, mapping); err != nil {
		r.logger.Warn("region cache store failed",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
	}
	return mapping, nil
}

// ResolveOrEmpty degrades to an empty mapping when the rebuild fails, so
// reference-data unavailability never blocks vacancy ingestion; every city
// then resolves to Unknown.
func (r *Resolver) ResolveOrEmpty(ctx context.Context, platform vacancy.Platform) Mapping {
	mapping, err := r.Resolve(ctx, platform)
	if err != nil {
		r.logger.Warn("region mapping unavailable, cities will resolve to Unknown",
			zap.String("platform", string(platform)),
			zap.Error(err),
		)
		return Mapping{}
	}
	return mapping
}

func (r *Resolver) rebuild(ctx context.Context, platform vacancy.Platform) (Mapping, error) {
	switch platform {
	case vacancy.PlatformHeadHunter:
		raw, err := r.client.GetJSON(ctx, r.cfg.HeadHunterAreasURL, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch areas: %w", err)
		}
		return FlattenHeadHunterAreas(raw)
	case vacancy.PlatformSuperJob:
		raw, err := r.client.GetJSON(ctx, r.cfg.SuperJobRegionsURL, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch regions: %w", err)
		}
		return FlattenSuperJobRegions(raw)
	default:
		// Push-model sources carry no area hierarchy.
		return Mapping{}, nil
	}
}

type hhArea struct {
	Name  string   `json:"name"`
	Areas []hhArea `json:"areas"`
}

// FlattenHeadHunterAreas reduces the country-region-city tree to a flat
// city-to-region mapping. Leaf cities map to their enclosing region's name;
// a region with no child cities maps to itself.
func FlattenHeadHunterAreas(raw json.RawMessage) (Mapping, error) {
	var countries []hhArea
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("decode areas: %w", err)
	}
	mapping := Mapping{}
	for _, country := range countries {
		for _, region := range country.Areas {
			for _, city := range region.Areas {
				mapping[city.Name] = region.Name
			}
			if len(region.Areas) == 0 {
				mapping[region.Name] = region.Name
			}
		}
	}
	return mapping, nil
}

type sjTown struct {
	Title string `json:"title"`
}

type sjRegion struct {
	Title string   `json:"title"`
	Towns []sjTown `json:"towns"`
}

type sjCountry struct {
	Title   string     `json:"title"`
	Towns   []sjTown   `json:"towns"`
	Regions []sjRegion `json:"regions"`
}

// FlattenSuperJobRegions reduces the combined regions payload: top-level
// towns map to themselves, region towns map to their region, and a region
// with no towns maps to itself.
func FlattenSuperJobRegions(raw json.RawMessage) (Mapping, error) {
	var countries []sjCountry
	if err := json.Unmarshal(raw, &countries); err != nil {
		return nil, fmt.Errorf("decode regions: %w", err)
	}
	mapping := Mapping{}
	for _, country := range countries {
		for _, town := range country.Towns {
			mapping[town.Title] = town.Title
		}
		for _, region := range country.Regions {
			for _, town := range region.Towns {
				mapping[town.Title] = region.Title
			}
			if len(region.Towns) == 0 {
				mapping[region.Title] = region.Title
			}
		}
	}
	return mapping, nil
}
