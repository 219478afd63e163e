package repositories

import (
	"context"
	"database/sql"

	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

type PostgresMessageRepository struct {
	db *sql.DB
}

func NewPostgresMessageRepository(db *sql.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Create(ctx context.Context, message *models.Message) error {
	const query = `
	INSERT INTO messages (
		id,
		sender_id,
		receiver_id,
		type,
		text,
		image,
		room_id,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	RETURNING created_at
	`

	return r.db.QueryRowContext(
		ctx,
		query,
		message.ID,
		message.SenderID,
		message.ReceiverID,
		message.Type,
		message.Text,
		message.Image,
		message.RoomID,
	).Scan(&message.CreatedAt)
}

// Conversation returns both directions of the pair ordered by insertion.
func (r *PostgresMessageRepository) Conversation(ctx context.Context, participantA, participantB string) ([]*models.Message, error) {
	const query = `
	SELECT
		id,
		sender_id,
		receiver_id,
		type,
		text,
		image,
		room_id,
		created_at
	FROM messages
	WHERE (sender_id = $1 AND receiver_id = $2)
	   OR (sender_id = $2 AND receiver_id = $1)
	ORDER BY seq ASC
	`

	rows, err := r.db.QueryContext(ctx, query, participantA, participantB)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*models.Message, 0)
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(
			&m.ID,
			&m.SenderID,
			&m.ReceiverID,
			&m.Type,
			&m.Text,
			&m.Image,
			&m.RoomID,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
