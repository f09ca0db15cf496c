package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const feedbackColumns = `id, source, content, sentiment, category, priority, themes, created_at, addressed, addressed_at`

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	logger.Info("Database schema ready", zap.Uint("version", version), zap.Bool("dirty", dirty))

	return &PostgresStorage{db: db, logger: logger}, nil
}

// RunMigrations applies all pending migrations and returns the resulting version
func RunMigrations(db *sql.DB) (uint, bool, error) {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, false, fmt.Errorf("failed to run migrations: %w", err)
	}

	return m.Version()
}

func (s *PostgresStorage) Insert(ctx context.Context, fb *models.Feedback) error {
	var createdAt any
	if !fb.CreatedAt.IsZero() {
		createdAt = fb.CreatedAt
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO feedback (source, content, sentiment, category, priority, themes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, NOW()))
		RETURNING id, created_at`,
		string(fb.Source),
		fb.Content,
		string(fb.Sentiment),
		string(fb.Category),
		fb.Priority,
		models.EncodeThemes(fb.Themes),
		createdAt,
	).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting feedback: %w", err)
	}

	if fb.Themes == nil {
		fb.Themes = []string{}
	}
	return nil
}

func (s *PostgresStorage) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)
	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error getting feedback %d: %w", id, err)
	}
	return fb, nil
}

func (s *PostgresStorage) UpdateAddressed(ctx context.Context, id int64, addressed bool) (*models.Feedback, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE feedback
		SET addressed = $2,
		    addressed_at = CASE WHEN $2 THEN NOW() ELSE NULL END
		WHERE id = $1
		RETURNING `+feedbackColumns, id, addressed)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error updating feedback %d: %w", id, err)
	}
	return fb, nil
}

func (s *PostgresStorage) Query(ctx context.Context, filter Filter, limit, offset int) ([]*models.Feedback, error) {
	where, args := buildWhere(filter)
	query := `SELECT ` + feedbackColumns + ` FROM feedback` + where + ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying feedback: %w", err)
	}
	return collectFeedback(rows)
}

func (s *PostgresStorage) Count(ctx context.Context, filter Filter) (int, error) {
	where, args := buildWhere(filter)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting feedback: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) All(ctx context.Context) ([]*models.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+feedbackColumns+` FROM feedback ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error loading feedback: %w", err)
	}
	return collectFeedback(rows)
}

func (s *PostgresStorage) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `TRUNCATE feedback RESTART IDENTITY`); err != nil {
		return fmt.Errorf("error clearing feedback: %w", err)
	}
	s.logger.Info("Cleared all feedback")
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// buildWhere renders the filter as a WHERE clause with positional arguments.
// It is shared by Query and Count so both see the same predicate.
func buildWhere(filter Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s $%d", column, len(args)))
	}

	if filter.Source != nil {
		add("source =", string(*filter.Source))
	}
	if filter.Sentiment != nil {
		add("sentiment =", string(*filter.Sentiment))
	}
	if filter.Category != nil {
		add("category =", string(*filter.Category))
	}
	if filter.Priority != nil {
		add("priority =", *filter.Priority)
	}
	if filter.Since != nil {
		add("created_at >=", *filter.Since)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeedback(row rowScanner) (*models.Feedback, error) {
	var (
		fb          models.Feedback
		source      string
		sentiment   string
		category    string
		themes      []byte
		addressedAt sql.NullTime
	)
	err := row.Scan(
		&fb.ID,
		&source,
		&fb.Content,
		&sentiment,
		&category,
		&fb.Priority,
		&themes,
		&fb.CreatedAt,
		&fb.Addressed,
		&addressedAt,
	)
	if err != nil {
		return nil, err
	}

	fb.Source = models.Source(source)
	fb.Sentiment = models.Sentiment(sentiment)
	fb.Category = models.Category(category)
	fb.Themes = models.DecodeThemes(themes)
	if addressedAt.Valid {
		t := addressedAt.Time
		fb.AddressedAt = &t
	}
	return &fb, nil
}

func collectFeedback(rows *sql.Rows) ([]*models.Feedback, error) {
	defer rows.Close()

	records := make([]*models.Feedback, 0)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning feedback: %w", err)
		}
		records = append(records, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback rows: %w", err)
	}
	return records, nil
}
