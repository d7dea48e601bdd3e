package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
)

// ErrProjectNotFound is returned when no project matches an id or name.
var ErrProjectNotFound = errors.New("project not found")

const projectColumns = `id, name, code, description, status, assigned_users,
		start_date, end_date, project_manager`

// ProjectRepository provides access to projects in the database.
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	p := &models.Project{}
	var description sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.Code, &description, &p.Status, &p.AssignedUsers,
		&p.StartDate, &p.EndDate, &p.ProjectManager,
	)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		p.Description = description.String
	}
	return p, nil
}

// List returns all projects.
func (r *ProjectRepository) List() ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY CAST(id AS UNSIGNED)`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			log.Printf("[ProjectRepository.List] scan error: %v", err)
			continue
		}
		projects = append(projects, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return projects, nil
}

// ListForUser returns the projects a user can see: those they are assigned
// to plus those they manage.
func (r *ProjectRepository) ListForUser(userEmail string) ([]models.Project, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	visible := []models.Project{}
	for _, p := range all {
		if p.ProjectManager == userEmail {
			visible = append(visible, p)
			continue
		}
		for _, assigned := range p.AssignedUsers {
			if assigned == userEmail {
				visible = append(visible, p)
				break
			}
		}
	}
	return visible, nil
}

// GetByID returns one project or ErrProjectNotFound.
func (r *ProjectRepository) GetByID(id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	p, err := scanProject(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("querying project %s: %w", id, err)
	}
	return p, nil
}

// GetByName returns the project with the given name, compared
// case-insensitively, or ErrProjectNotFound.
func (r *ProjectRepository) GetByName(name string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE LOWER(name) = LOWER(?)`
	p, err := scanProject(r.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("querying project %q: %w", name, err)
	}
	return p, nil
}

// Create inserts a new project with the next sequential id.
func (r *ProjectRepository) Create(p *models.Project) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("[ProjectRepository.Create] rollback error: %v", rbErr)
			}
		}
	}()

	var nextID int64
	if txErr = tx.QueryRow(
		`SELECT COALESCE(MAX(CAST(id AS UNSIGNED)), 0) + 1 FROM projects`,
	).Scan(&nextID); txErr != nil {
		return fmt.Errorf("computing next project id: %w", txErr)
	}
	p.ID = fmt.Sprintf("%d", nextID)

	query := `
		INSERT INTO projects (` + projectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, txErr = tx.Exec(query,
		p.ID, p.Name, p.Code, p.Description, p.Status, p.AssignedUsers,
		p.StartDate, p.EndDate, p.ProjectManager,
	); txErr != nil {
		return fmt.Errorf("inserting project: %w", txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("committing project %s: %w", p.ID, txErr)
	}
	return nil
}

// Update rewrites a project.
func (r *ProjectRepository) Update(p *models.Project) error {
	query := `
		UPDATE projects
		SET name = ?, code = ?, description = ?, status = ?, assigned_users = ?,
			start_date = ?, end_date = ?, project_manager = ?
		WHERE id = ?`
	result, err := r.db.Exec(query,
		p.Name, p.Code, p.Description, p.Status, p.AssignedUsers,
		p.StartDate, p.EndDate, p.ProjectManager, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", p.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for project %s: %w", p.ID, err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// Delete removes a project.
func (r *ProjectRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected for project %s: %w", id, err)
	}
	if rows == 0 {
		return ErrProjectNotFound
	}
	return nil
}
