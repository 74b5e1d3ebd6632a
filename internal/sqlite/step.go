package sqlite

import (
	"context"
	"fmt"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/repository"
)

// StepRepository implements storage.StepRepository for SQLite
type StepRepository struct {
	db *DB
}

// NewStepRepository creates a new StepRepository
func NewStepRepository(db *DB) *StepRepository {
	return &StepRepository{db: db}
}

// List returns a project's steps ordered by number. Steps of projects the
// tenant does not own are never returned.
func (r *StepRepository) List(ctx context.Context, tenantID, projectID string) ([]project.Step, error) {
	query := `
		SELECT s.project_id, s.number, s.title, s.instructions, s.estimated_minutes, s.tools
		FROM steps s
		JOIN projects p ON p.id = s.project_id
		WHERE s.project_id = ? AND p.tenant_id = ?
		ORDER BY s.number
	`

	rows, err := r.db.QueryContext(ctx, query, projectID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()

	var steps []project.Step
	for rows.Next() {
		var st project.Step
		var tools string
		if err := rows.Scan(&st.ProjectID, &st.Number, &st.Title, &st.Instructions, &st.EstimatedMinutes, &tools); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if st.Tools, err = decodeStrings(tools); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating step rows: %w", err)
	}

	return steps, nil
}

// Replace swaps a project's whole plan in one transaction.
func (r *StepRepository) Replace(ctx context.Context, tenantID, projectID string, steps []project.Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE id = ? AND tenant_id = ?`,
		projectID, tenantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return repository.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}

	insert := `
		INSERT INTO steps (project_id, number, title, instructions, estimated_minutes, tools)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, st := range steps {
		tools, err := encodeStrings(st.Tools)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insert,
			projectID,
			st.Number,
			st.Title,
			st.Instructions,
			st.EstimatedMinutes,
			tools,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			if isUniqueViolation(err) {
				return repository.ErrDuplicate
			}
			return fmt.Errorf("failed to insert step %d: %w", st.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
