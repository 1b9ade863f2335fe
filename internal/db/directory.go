package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"Mailcast/internal/models"
)

// InsertClients upserts clients by (owner, email) and fills in their IDs.
func (s *Store) InsertClients(ctx context.Context, clients []models.Client) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		for i := range clients {
			c := &clients[i]
			err := tx.QueryRow(ctx,
				`INSERT INTO clients (owner_id, email, full_name, comment)
				 VALUES ($1,$2,$3,$4)
				 ON CONFLICT (owner_id, email)
				 DO UPDATE SET full_name = EXCLUDED.full_name, comment = EXCLUDED.comment
				 RETURNING id`,
				c.OwnerID, c.Email, c.FullName, c.Comment,
			).Scan(&c.ID)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

func (s *Store) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO messages (owner_id, subject, body)
		 VALUES ($1,$2,$3)
		 RETURNING id`,
		msg.OwnerID, msg.Subject, msg.Body,
	).Scan(&msg.ID)

	return mapError(err)
}

func (s *Store) ListNewsletterMessages(ctx context.Context, newsletterID int64) ([]models.Message, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT m.id, m.owner_id, m.subject, m.body
		 FROM messages m
		 JOIN newsletter_messages nm ON nm.message_id = m.id
		 WHERE nm.newsletter_id=$1
		 ORDER BY m.id`,
		newsletterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Subject, &m.Body); err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

func (s *Store) ListNewsletterClients(ctx context.Context, newsletterID int64) ([]models.Client, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT c.id, c.owner_id, c.email, c.full_name, c.comment
		 FROM clients c
		 JOIN newsletter_clients nc ON nc.client_id = c.id
		 WHERE nc.newsletter_id=$1
		 ORDER BY c.id`,
		newsletterID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Email, &c.FullName, &c.Comment); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}
