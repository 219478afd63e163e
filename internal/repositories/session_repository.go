package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/preetsinghmakkar/CampusConnect/internal/apperrors"
	"github.com/preetsinghmakkar/CampusConnect/internal/models"
)

const uniqueViolation = "23505"

const sessionColumns = `
	id,
	student_id,
	mentor_id,
	student_name,
	mentor_name,
	status,
	session_type,
	topic,
	amount,
	is_payment_done,
	payment_id,
	start_time,
	end_time,
	duration_minutes,
	rating,
	feedback,
	declined_at,
	created_at,
	updated_at`

// PostgresSessionRepository stores sessions in the sessions table.
type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// Create a new session. The partial unique index on pending pairs turns a
// duplicate request into a unique violation.
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
	INSERT INTO sessions (
		id,
		student_id,
		mentor_id,
		student_name,
		mentor_name,
		status,
		session_type,
		topic,
		amount,
		is_payment_done,
		payment_id,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.StudentID,
		session.MentorID,
		session.StudentName,
		session.MentorName,
		session.Status,
		session.SessionType,
		session.Topic,
		session.Amount,
		session.IsPaymentDone,
		session.PaymentID,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("pending session for pair: %w", apperrors.ErrConflict)
	}
	return err
}

// Get session by ID
func (r *PostgresSessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE id = $1
	LIMIT 1
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %s: %w", id, apperrors.ErrNotFound)
	}
	return session, err
}

func (r *PostgresSessionRepository) FindPending(ctx context.Context, studentID, mentorID string) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE student_id = $1 AND mentor_id = $2 AND status = $3
	LIMIT 1
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, studentID, mentorID, models.SessionStatusRequested))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("pending session: %w", apperrors.ErrNotFound)
	}
	return session, err
}

// Update writes every mutable column. Last write wins.
func (r *PostgresSessionRepository) Update(ctx context.Context, session *models.Session) error {
	const query = `
	UPDATE sessions
	SET
		status = $2,
		is_payment_done = $3,
		payment_id = $4,
		start_time = $5,
		end_time = $6,
		duration_minutes = $7,
		rating = $8,
		feedback = $9,
		declined_at = $10,
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.Status,
		session.IsPaymentDone,
		session.PaymentID,
		session.StartTime,
		session.EndTime,
		session.DurationMinutes,
		session.Rating,
		session.Feedback,
		session.DeclinedAt,
	).Scan(&session.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("session %s: %w", session.ID, apperrors.ErrNotFound)
	}
	return err
}

func (r *PostgresSessionRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE student_id = $1 AND status <> $2
	ORDER BY created_at DESC
	`
	return r.list(ctx, query, studentID, models.SessionStatusRejected)
}

func (r *PostgresSessionRepository) ListByMentor(ctx context.Context, mentorID string) ([]*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE mentor_id = $1 AND status <> $2
	ORDER BY created_at DESC
	`
	return r.list(ctx, query, mentorID, models.SessionStatusRejected)
}

func (r *PostgresSessionRepository) ListDeclined(ctx context.Context, participantID string) ([]*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE (student_id = $1 OR mentor_id = $1) AND status = $2
	ORDER BY created_at DESC
	`
	return r.list(ctx, query, participantID, models.SessionStatusRejected)
}

func (r *PostgresSessionRepository) list(ctx context.Context, query string, args ...any) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		session models.Session
		rating  sql.NullInt64
	)

	err := row.Scan(
		&session.ID,
		&session.StudentID,
		&session.MentorID,
		&session.StudentName,
		&session.MentorName,
		&session.Status,
		&session.SessionType,
		&session.Topic,
		&session.Amount,
		&session.IsPaymentDone,
		&session.PaymentID,
		&session.StartTime,
		&session.EndTime,
		&session.DurationMinutes,
		&rating,
		&session.Feedback,
		&session.DeclinedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := int(rating.Int64)
		session.Rating = &v
	}
	return &session, nil
}
