package store

import (
	"context"
	"fmt"

	"github.com/MarcelCutts/home-finder-sub001/internal/models"
)

// GetPendingNotification returns analyzed properties awaiting delivery,
// oldest-first.
func (s *PostgresStore) GetPendingNotification(ctx context.Context) ([]models.TrackedProperty, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+propertyColumns+` FROM properties
		WHERE notification_status = $1
		ORDER BY first_seen ASC
	`, models.NotificationPending)
	if err != nil {
		return nil, fmt.Errorf("store: query pending notifications: %w", err)
	}
	defer rows.Close()

	return s.scanTrackedProperties(ctx, rows)
}

// MarkNotified transitions a property to sent and stamps the delivery time.
func (s *PostgresStore) MarkNotified(ctx context.Context, uniqueID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE properties
		SET notification_status = $1, notified_at = now(), updated_at = now()
		WHERE unique_id = $2
	`, models.NotificationSent, uniqueID)
	if err != nil {
		return fmt.Errorf("store: mark notified %s: %w", uniqueID, err)
	}
	return nil
}

// MarkNotificationFailed transitions a property to the terminal failed
// notification state; the pipeline does not retry delivery automatically.
func (s *PostgresStore) MarkNotificationFailed(ctx context.Context, uniqueID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE properties
		SET notification_status = $1, updated_at = now()
		WHERE unique_id = $2
	`, models.NotificationFailed, uniqueID)
	if err != nil {
		return fmt.Errorf("store: mark notification failed %s: %w", uniqueID, err)
	}
	return nil
}
