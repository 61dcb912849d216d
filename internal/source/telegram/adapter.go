// Package telegram adapts pushed channel messages into canonical vacancy
// records. The channel client connection lives outside this service; only
// the message shape is consumed here, so the fetch methods are push-only.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/source/parse"
	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// Adapter implements vacancy.SourceAdapter for the messaging channel.
type Adapter struct {
	logger *zap.Logger
}

// New constructs an Adapter.
func New(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{logger: logger}
}

// Platform identifies the source.
func (a *Adapter) Platform() vacancy.Platform {
	return vacancy.PlatformTelegram
}

// FetchListing is push-only for this source.
func (a *Adapter) FetchListing(context.Context, vacancy.SearchParams) ([]string, error) {
	return nil, vacancy.ErrPushOnly
}

// FetchDetail is push-only for this source.
func (a *Adapter) FetchDetail(context.Context, string) (json.RawMessage, error) {
	return nil, vacancy.ErrPushOnly
}

// Transform maps a pushed channel message into the canonical shape: channel
// identity becomes the platform, the message id the external id, and the
// first line of the text the title.
func (a *Adapter) Transform(raw json.RawMessage, regions vacancy.RegionMapping) (vacancy.Record, error) {
	var msg vacancy.ChannelMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return vacancy.Record{}, fmt.Errorf("decode channel message: %w", err)
	}
	if msg.MessageID == 0 {
		return vacancy.Record{}, &vacancy.TransformError{Identifier: msg.ChannelUsername, Field: "message_id"}
	}
	id := strconv.FormatInt(msg.MessageID, 10)

	title := parse.FirstLine(msg.Text)
	if title == "" {
		return vacancy.Record{}, &vacancy.TransformError{Identifier: id, Field: "title"}
	}

	rec := vacancy.Record{
		Platform:    a.Platform(),
		ExternalID:  id,
		Title:       title,
		CompanyName: msg.ChannelTitle,
		Region:      regions.Region(""),
		Salary:      parse.Negotiable,
		URL:         messageURL(msg),
		Description: parse.PlainText(msg.Text),
		PublishedAt: msg.Date,
	}
	return rec, nil
}

func messageURL(msg vacancy.ChannelMessage) string {
	if msg.ChannelUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", msg.ChannelUsername, msg.MessageID)
}
