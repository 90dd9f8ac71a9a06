// Package notify sends new-property alerts to Slack, grounded on tarsy's
// pkg/slack package. The original sent Telegram messages; the capability
// boundary (spec §6 "send_notification") is external either way, so this
// substitutes a concrete, pack-grounded Slack implementation (see
// SPEC_FULL.md's SUPPLEMENTED FEATURES).
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// Notifier is the external delivery boundary; production is Slack, tests use
// a stub/fake.
type Notifier interface {
	Notify(ctx context.Context, property models.TrackedProperty) error
}

// Client is a thin wrapper around the slack-go SDK, mirroring
// pkg/slack.Client's shape (single channel, context-bound PostMessage).
type Client struct {
	api       *goslack.Client
	channelID string
	log       *slog.Logger
}

// NewClient builds a Slack API client for the given bot token and channel.
func NewClient(token, channelID string) *Client {
	return &Client{
		api:       goslack.New(token),
		channelID: channelID,
		log:       slog.With("component", "notify"),
	}
}

// Notify posts a new-listing alert to the configured channel. Nil-safe
// fail-open pattern is NOT used here (unlike tarsy's alert notifications) —
// notification delivery failure must be visible to the pipeline so it can
// mark the property notification_status=failed (spec §4.7), not silently
// swallowed.
func (c *Client) Notify(ctx context.Context, property models.TrackedProperty) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	blocks := BuildListingMessage(property)
	_, _, err := c.api.PostMessageContext(ctx, c.channelID, goslack.MsgOptionBlocks(blocks...))
	if err != nil {
		return fmt.Errorf("notify: post message for %s: %w", property.Property.UniqueID(), err)
	}
	return nil
}
