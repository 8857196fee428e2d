package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const petitionColumns = `id, title, story, assessed_value, goal, signature_count, created_at`

func scanPetition(row *sql.Row) (Petition, error) {
	var item Petition
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Story,
		&item.AssessedValue,
		&item.Goal,
		&item.SignatureCount,
		&item.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Petition{}, ErrNotFound
	}
	if err != nil {
		return Petition{}, fmt.Errorf("scan petition: %w", err)
	}
	return item, nil
}

// CreatePetition inserts one petition row with a zero signature count
// and returns the stored row.
func (s *PostgresStore) CreatePetition(ctx context.Context, item Petition) (Petition, error) {
	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO petitions (id, title, story, assessed_value, goal, signature_count)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING `+petitionColumns+`
	`, id, item.Title, item.Story, item.AssessedValue, item.Goal)
	created, err := scanPetition(row)
	if err != nil {
		return Petition{}, fmt.Errorf("insert petition: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetPetition(ctx context.Context, petitionID string) (Petition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+petitionColumns+`
		FROM petitions
		WHERE id=$1
	`, petitionID)
	return scanPetition(row)
}

func (s *PostgresStore) ListPetitions(ctx context.Context) ([]Petition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+petitionColumns+`
		FROM petitions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list petitions: %w", err)
	}
	defer rows.Close()

	items := make([]Petition, 0)
	for rows.Next() {
		var item Petition
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Story,
			&item.AssessedValue,
			&item.Goal,
			&item.SignatureCount,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan petition: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate petitions: %w", err)
	}
	return items, nil
}

// InsertSignature records one signature and bumps the petition's
// signature_count in the same transaction, so the stored count always
// equals the number of signature rows no matter how submissions
// interleave.
func (s *PostgresStore) InsertSignature(ctx context.Context, item Signature) (Signature, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Signature{}, fmt.Errorf("begin signature tx: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE petitions
		SET signature_count = signature_count + 1
		WHERE id=$1
	`, item.PetitionID)
	if err != nil {
		_ = tx.Rollback()
		return Signature{}, fmt.Errorf("bump signature count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return Signature{}, fmt.Errorf("bump signature count rows: %w", err)
	}
	if affected == 0 {
		_ = tx.Rollback()
		return Signature{}, ErrPetitionMissing
	}

	id := item.ID
	if id == "" {
		id = uuid.NewString()
	}
	var stored Signature
	err = tx.QueryRowContext(ctx, `
		INSERT INTO signatures (id, petition_id, first_name, last_name, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, petition_id, first_name, last_name, email, created_at
	`, id, item.PetitionID, item.FirstName, item.LastName, item.Email).Scan(
		&stored.ID,
		&stored.PetitionID,
		&stored.FirstName,
		&stored.LastName,
		&stored.Email,
		&stored.CreatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return Signature{}, fmt.Errorf("insert signature: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Signature{}, fmt.Errorf("commit signature tx: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) CountSignatures(ctx context.Context, petitionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM signatures WHERE petition_id=$1
	`, petitionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role
		FROM users
		WHERE LOWER(email)=LOWER($1)
	`, strings.TrimSpace(email)).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, role
		FROM users
		WHERE id=$1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, role)
		VALUES ($1, $2, LOWER($3), $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, id, user.DisplayName, user.Email, user.PasswordHash, user.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
