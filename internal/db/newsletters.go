package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"Mailcast/internal/models"
)

const newsletterColumns = `n.id, n.owner_id, n.fire_at::text, n.frequency, n.status, n.is_active,
	n.finish_date::text, n.finish_time::text, n.created_at,
	COALESCE((SELECT array_agg(c.client_id ORDER BY c.client_id)
	          FROM newsletter_clients c WHERE c.newsletter_id = n.id), '{}'),
	COALESCE((SELECT array_agg(m.message_id ORDER BY m.message_id)
	          FROM newsletter_messages m WHERE m.newsletter_id = n.id), '{}')`

func scanNewsletter(row pgx.Row) (*models.Newsletter, error) {
	var (
		nl     models.Newsletter
		fireAt string
	)
	err := row.Scan(
		&nl.ID, &nl.OwnerID, &fireAt, &nl.Frequency, &nl.Status, &nl.IsActive,
		&nl.FinishDate, &nl.FinishTime, &nl.CreatedAt,
		&nl.ClientIDs, &nl.MessageIDs,
	)
	if err != nil {
		return nil, mapError(err)
	}

	if nl.FireAt, err = models.ParseTimeOfDay(fireAt); err != nil {
		return nil, fmt.Errorf("newsletter %d: %w", nl.ID, err)
	}

	return &nl, nil
}

// CreateNewsletter inserts nl and its client/message associations in one
// transaction.
func (s *Store) CreateNewsletter(ctx context.Context, nl *models.Newsletter) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO newsletters
			 (owner_id, fire_at, frequency, status, is_active, finish_date, finish_time, created_at)
			 VALUES ($1,$2::time,$3,$4,$5,$6::date,$7::time,NOW())
			 RETURNING id, created_at`,
			nl.OwnerID,
			nl.FireAt.String(),
			nl.Frequency,
			nl.Status,
			nl.IsActive,
			nl.FinishDate,
			nl.FinishTime,
		).Scan(&nl.ID, &nl.CreatedAt)
		if err != nil {
			return mapError(err)
		}

		return writeAssociations(ctx, tx, nl)
	})
}

// UpdateNewsletter rewrites the editable fields, replaces the associations
// and re-activates the newsletter. Status is left to the task manager.
func (s *Store) UpdateNewsletter(ctx context.Context, nl *models.Newsletter) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE newsletters
			 SET fire_at=$1::time,
			     frequency=$2,
			     finish_date=$3::date,
			     finish_time=$4::time,
			     is_active=TRUE
			 WHERE id=$5`,
			nl.FireAt.String(),
			nl.Frequency,
			nl.FinishDate,
			nl.FinishTime,
			nl.ID,
		)
		if err != nil {
			return mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM newsletter_clients WHERE newsletter_id=$1`, nl.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM newsletter_messages WHERE newsletter_id=$1`, nl.ID); err != nil {
			return err
		}

		return writeAssociations(ctx, tx, nl)
	})
}

func writeAssociations(ctx context.Context, tx pgx.Tx, nl *models.Newsletter) error {
	if len(nl.ClientIDs) > 0 {
		_, err := tx.Exec(ctx,
			`INSERT INTO newsletter_clients (newsletter_id, client_id)
			 SELECT $1, c.id FROM clients c
			 WHERE c.id = ANY($2) AND c.owner_id = $3
			 ON CONFLICT DO NOTHING`,
			nl.ID, nl.ClientIDs, nl.OwnerID,
		)
		if err != nil {
			return mapError(err)
		}
	}

	if len(nl.MessageIDs) > 0 {
		_, err := tx.Exec(ctx,
			`INSERT INTO newsletter_messages (newsletter_id, message_id)
			 SELECT $1, m.id FROM messages m
			 WHERE m.id = ANY($2) AND m.owner_id = $3
			 ON CONFLICT DO NOTHING`,
			nl.ID, nl.MessageIDs, nl.OwnerID,
		)
		if err != nil {
			return mapError(err)
		}
	}

	return nil
}

func (s *Store) GetNewsletter(ctx context.Context, id int64) (*models.Newsletter, error) {
	return scanNewsletter(s.Pool.QueryRow(ctx,
		`SELECT `+newsletterColumns+`
		 FROM newsletters n
		 WHERE n.id=$1`,
		id,
	))
}

// ListNewsletters returns the newsletters of ownerID, or every newsletter
// when ownerID is nil.
func (s *Store) ListNewsletters(ctx context.Context, ownerID *int64) ([]models.Newsletter, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT `+newsletterColumns+`
		 FROM newsletters n
		 WHERE $1::bigint IS NULL OR n.owner_id = $1
		 ORDER BY n.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Newsletter
	for rows.Next() {
		nl, err := scanNewsletter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *nl)
	}

	return out, rows.Err()
}

func (s *Store) UpdateNewsletterStatus(ctx context.Context, id int64, status models.NewsletterStatus) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE newsletters SET status=$1 WHERE id=$2`,
		status,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *Store) SetNewsletterActive(ctx context.Context, id int64, active bool) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE newsletters SET is_active=$1 WHERE id=$2`,
		active,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
