package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/pipeline"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	memstore "github.com/ivnGl/hexlet-vacancy-analysis/internal/store/memory"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

type stubAdapter struct{}

func (stubAdapter) Platform() vacancy.Platform { return vacancy.PlatformHeadHunter }

func (stubAdapter) FetchListing(context.Context, vacancy.SearchParams) ([]string, error) {
	return []string{"1"}, nil
}

func (stubAdapter) FetchDetail(_ context.Context, id string) (json.RawMessage, error) {
	return json.RawMessage(fmt.Sprintf(`{"id": %q}`, id)), nil
}

func (stubAdapter) Transform(raw json.RawMessage, regions vacancy.RegionMapping) (vacancy.Record, error) {
	var item struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return vacancy.Record{}, err
	}
	return vacancy.Record{
		Platform:   vacancy.PlatformHeadHunter,
		ExternalID: item.ID,
		Title:      "Вакансия " + item.ID,
		Region:     regions.Region(""),
		Salary:     vacancy.SalaryNegotiable,
		URL:        "https://example.com/" + item.ID,
	}, nil
}

type emptyRegions struct{}

func (emptyRegions) ResolveOrEmpty(context.Context, vacancy.Platform) region.Mapping {
	return region.Mapping{}
}

type clock struct{}

func (clock) Now() time.Time { return time.Now().UTC() }

type ids struct{}

func (ids) NewID() (string, error) { return "run", nil }

func newTestPipeline(store vacancy.Store) *pipeline.Pipeline {
	return pipeline.New(store, emptyRegions{}, nil, clock{}, ids{}, pipeline.Config{}, nil)
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	sched := New(newTestPipeline(memstore.NewVacancyStore()), []Job{
		{Adapter: stubAdapter{}, Spec: "not a cron spec"},
	}, false, nil)

	err := sched.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HeadHunter")
}

func TestStartRunsImmediatelyWhenConfigured(t *testing.T) {
	t.Parallel()

	store := memstore.NewVacancyStore()
	sched := New(newTestPipeline(store), []Job{
		{Adapter: stubAdapter{}, Spec: "@every 1h"},
	}, true, nil)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return store.Len() == 1
	}, 2*time.Second, 10*time.Millisecond, "immediate run should populate the store")
}

func TestStopIsIdempotentWithoutRuns(t *testing.T) {
	t.Parallel()

	store := memstore.NewVacancyStore()
	sched := New(newTestPipeline(store), []Job{
		{Adapter: stubAdapter{}, Spec: "@every 1h"},
	}, false, nil)

	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
	assert.Equal(t, 0, store.Len())
}
