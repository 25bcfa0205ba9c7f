// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/pcp/pkg/persistence"
	"github.com/dukex/pcp/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	teams      *TeamRepository
	users      *UserRepository
	projects   *ProjectRepository
	policies   *PolicyRepository
	objectives *ObjectiveRepository
	prompts    *PromptRepository
	workflows  *WorkflowRepository
	shares     *ShareRepository
	usage      *UsageRepository
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrator, err := sqlbase.NewMigrator(logger, database, migrations())
	if err != nil {
		_ = database.Close()

		return nil, err
	}

	err = migrator.Up(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		teams:      NewTeamRepository(database, logger),
		users:      NewUserRepository(database, logger),
		projects:   NewProjectRepository(database, logger),
		policies:   NewPolicyRepository(database, logger),
		objectives: NewObjectiveRepository(database, logger),
		prompts:    NewPromptRepository(database, logger),
		workflows:  NewWorkflowRepository(database, logger),
		shares:     NewShareRepository(database, logger),
		usage:      NewUsageRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) TeamRepository() persistence.TeamRepository {
	return p.teams
}

func (p *Persistence) UserRepository() persistence.UserRepository {
	return p.users
}

func (p *Persistence) ProjectRepository() persistence.ProjectRepository {
	return p.projects
}

func (p *Persistence) PolicyRepository() persistence.PolicyRepository {
	return p.policies
}

func (p *Persistence) ObjectiveRepository() persistence.ObjectiveRepository {
	return p.objectives
}

func (p *Persistence) PromptRepository() persistence.PromptRepository {
	return p.prompts
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) ShareRepository() persistence.ShareRepository {
	return p.shares
}

func (p *Persistence) UsageRepository() persistence.UsageRepository {
	return p.usage
}

type scanner interface {
	Scan(dest ...any) error
}

// queryAll runs query and scans every row with scan.
func queryAll[T any](
	ctx context.Context,
	db *sql.DB,
	logger *slog.Logger,
	scan func(scanner) (*T, error),
	query string,
	args ...any,
) ([]*T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*T, 0)

	for rows.Next() {
		record, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// queryOne scans a single row, returning (nil, nil) when there is none.
func queryOne[T any](ctx context.Context, db *sql.DB, scan func(scanner) (*T, error), query string, args ...any) (*T, error) {
	record, err := scan(db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return record, nil
}

// writeError maps driver errors onto the persistence error kinds.
func writeError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return persistence.NewRepositoryError(op, entity, id, persistence.ErrDuplicate)
	}

	return persistence.NewRepositoryError(op, entity, id, err)
}

func touch(createdAt, updatedAt *time.Time) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		*createdAt = now
	}

	if updatedAt != nil {
		*updatedAt = now
	}
}
