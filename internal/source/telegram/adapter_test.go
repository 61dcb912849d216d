package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/region"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

func TestFetchMethodsArePushOnly(t *testing.T) {
	t.Parallel()

	adapter := New(nil)
	_, err := adapter.FetchListing(context.Background(), vacancy.SearchParams{})
	assert.ErrorIs(t, err, vacancy.ErrPushOnly)

	_, err = adapter.FetchDetail(context.Background(), "1")
	assert.ErrorIs(t, err, vacancy.ErrPushOnly)
}

func TestTransform(t *testing.T) {
	t.Parallel()

	msg := vacancy.ChannelMessage{
		ChannelUsername: "it_jobs",
		ChannelTitle:    "IT Вакансии",
		MessageID:       4321,
		Text:            "Go разработчик в стартап\n\nУдаленка, зарплата по итогам собеседования",
		Date:            time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	adapter := New(nil)
	rec, err := adapter.Transform(raw, region.Mapping{})
	require.NoError(t, err)

	assert.Equal(t, vacancy.PlatformTelegram, rec.Platform)
	assert.Equal(t, "4321", rec.ExternalID)
	assert.Equal(t, "Go разработчик в стартап", rec.Title)
	assert.Equal(t, "IT Вакансии", rec.CompanyName)
	assert.Equal(t, vacancy.RegionUnknown, rec.Region)
	assert.Equal(t, vacancy.SalaryNegotiable, rec.Salary)
	assert.Equal(t, "https://t.me/it_jobs/4321", rec.URL)
	assert.Contains(t, rec.Description, "Удаленка")
	assert.Equal(t, msg.Date, rec.PublishedAt)
}

func TestTransformMissingMessageID(t *testing.T) {
	t.Parallel()

	adapter := New(nil)
	raw := json.RawMessage(`{"channel_username": "it_jobs", "text": "Вакансия"}`)

	_, err := adapter.Transform(raw, region.Mapping{})
	var terr *vacancy.TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "message_id", terr.Field)
}

func TestTransformBlankTextRejected(t *testing.T) {
	t.Parallel()

	adapter := New(nil)
	raw := json.RawMessage(`{"channel_username": "it_jobs", "message_id": 5, "text": "  \n \n"}`)

	_, err := adapter.Transform(raw, region.Mapping{})
	var terr *vacancy.TransformError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "title", terr.Field)
}

func TestTransformNoUsernameNoURL(t *testing.T) {
	t.Parallel()

	adapter := New(nil)
	raw := json.RawMessage(`{"message_id": 9, "text": "Вакансия без канала"}`)

	rec, err := adapter.Transform(raw, region.Mapping{})
	require.NoError(t, err)
	assert.Empty(t, rec.URL)
}
