package db

import (
	"context"

	"Mailcast/internal/models"
)

func (s *Store) InsertLog(ctx context.Context, entry *models.NewsletterLog) error {
	return s.Pool.QueryRow(ctx,
		`INSERT INTO newsletter_logs
		 (outcome, response, client_id, message_id, newsletter_id, created_at)
		 VALUES ($1,$2,$3,$4,$5,NOW())
		 RETURNING id, created_at`,
		entry.Outcome,
		entry.Response,
		entry.ClientID,
		entry.MessageID,
		entry.NewsletterID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (s *Store) ListLogs(ctx context.Context, newsletterID int64) ([]models.NewsletterLog, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, created_at, outcome, response, client_id, message_id, newsletter_id
		 FROM newsletter_logs
		 WHERE newsletter_id=$1
		 ORDER BY created_at DESC, id DESC`,
		newsletterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NewsletterLog
	for rows.Next() {
		var l models.NewsletterLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Outcome, &l.Response, &l.ClientID, &l.MessageID, &l.NewsletterID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

// ListLogsByOwner returns the logs of every newsletter owned by ownerID, or
// every log when ownerID is nil. Newest first.
func (s *Store) ListLogsByOwner(ctx context.Context, ownerID *int64) ([]models.NewsletterLog, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT l.id, l.created_at, l.outcome, l.response, l.client_id, l.message_id, l.newsletter_id
		 FROM newsletter_logs l
		 LEFT JOIN newsletters n ON n.id = l.newsletter_id
		 WHERE $1::bigint IS NULL OR n.owner_id = $1
		 ORDER BY l.created_at DESC, l.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.NewsletterLog
	for rows.Next() {
		var l models.NewsletterLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Outcome, &l.Response, &l.ClientID, &l.MessageID, &l.NewsletterID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}

	return out, rows.Err()
}

func (s *Store) GetLog(ctx context.Context, id int64) (*models.NewsletterLog, error) {
	var l models.NewsletterLog
	err := s.Pool.QueryRow(ctx,
		`SELECT id, created_at, outcome, response, client_id, message_id, newsletter_id
		 FROM newsletter_logs
		 WHERE id=$1`,
		id,
	).Scan(&l.ID, &l.CreatedAt, &l.Outcome, &l.Response, &l.ClientID, &l.MessageID, &l.NewsletterID)
	if err != nil {
		return nil, mapError(err)
	}
	return &l, nil
}
