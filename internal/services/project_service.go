package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/timecalc"
)

// MinProjectDays is the shortest allowed project duration.
const MinProjectDays = 30

// ProjectInput is the client-supplied shape for creating or editing a project.
// Dates use the DD-MM-YYYY project layout.
type ProjectInput struct {
	Name           string   `json:"name"`
	Code           string   `json:"code"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
	ProjectManager string   `json:"projectManager"`
	AssignedUsers  []string `json:"assignedUsers"`
}

// ProjectWithHours decorates a project with its logged hour totals for the
// listing view. UserHours is the requesting user's own total and is zero for
// admins viewing all projects.
type ProjectWithHours struct {
	models.Project
	TotalHours int `json:"totalHours"`
	UserHours  int `json:"userHours"`
}

// ProjectServiceInterface defines project management operations.
type ProjectServiceInterface interface {
	ListProjects(user *models.User) ([]ProjectWithHours, error)
	GetProject(id string) (*models.Project, error)
	GetProjectByName(name string) (*models.Project, error)
	CreateProject(input ProjectInput, now time.Time) (*models.Project, error)
	UpdateProject(id string, input ProjectInput) (*models.Project, error)
	DeleteProject(id string) error
}

// ProjectService implements project CRUD with the duration and uniqueness
// rules enforced on top of the store.
type ProjectService struct {
	projectRepo   ProjectRepositoryInterface
	timesheetRepo TimesheetRepositoryInterface
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo ProjectRepositoryInterface, timesheetRepo TimesheetRepositoryInterface) *ProjectService {
	return &ProjectService{projectRepo: projectRepo, timesheetRepo: timesheetRepo}
}

// ListProjects returns the projects visible to user with hour totals.
// Admins see every project; managers and employees see only projects they
// manage or are assigned to, with their own hour total included.
func (s *ProjectService) ListProjects(user *models.User) ([]ProjectWithHours, error) {
	var (
		projects []models.Project
		err      error
	)
	if user.IsAdmin() {
		projects, err = s.projectRepo.List()
	} else {
		projects, err = s.projectRepo.ListForUser(user.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}

	out := make([]ProjectWithHours, 0, len(projects))
	for _, p := range projects {
		total, err := s.timesheetRepo.TotalHoursByProject(p.Name)
		if err != nil {
			return nil, fmt.Errorf("totaling hours for %q: %w", p.Name, err)
		}
		row := ProjectWithHours{Project: p, TotalHours: total}
		if !user.IsAdmin() {
			own, err := s.timesheetRepo.TotalHoursByProjectForUser(p.Name, user.Email)
			if err != nil {
				return nil, fmt.Errorf("totaling hours for %s on %q: %w", user.Email, p.Name, err)
			}
			row.UserHours = own
		}
		out = append(out, row)
	}
	return out, nil
}

// GetProject returns one project by id.
func (s *ProjectService) GetProject(id string) (*models.Project, error) {
	return s.projectRepo.GetByID(id)
}

// GetProjectByName returns one project by name, case-insensitively.
func (s *ProjectService) GetProjectByName(name string) (*models.Project, error) {
	return s.projectRepo.GetByName(name)
}

// validateProjectDates parses and checks the date pair shared by create and
// update. checkPast additionally rejects a start date before today, which
// only applies when creating.
func validateProjectDates(input ProjectInput, now time.Time, checkPast bool) (models.ProjectDate, models.ProjectDate, map[string]string) {
	fieldErrors := map[string]string{}
	var start, end time.Time
	var err error

	if strings.TrimSpace(input.StartDate) == "" {
		fieldErrors["startDate"] = "Start date is required"
	} else if start, err = models.ParseProjectDate(input.StartDate); err != nil {
		fieldErrors["startDate"] = "Start date must be in DD-MM-YYYY format"
	}
	if strings.TrimSpace(input.EndDate) == "" {
		fieldErrors["endDate"] = "End date is required"
	} else if end, err = models.ParseProjectDate(input.EndDate); err != nil {
		fieldErrors["endDate"] = "End date must be in DD-MM-YYYY format"
	}
	if len(fieldErrors) > 0 {
		return models.ProjectDate{}, models.ProjectDate{}, fieldErrors
	}

	if !start.Before(end) {
		fieldErrors["endDate"] = "End date must be after start date"
	} else if end.Sub(start) < MinProjectDays*24*time.Hour {
		fieldErrors["endDate"] = fmt.Sprintf("Project duration must be at least %d days", MinProjectDays)
	}
	if checkPast && start.Before(timecalc.StartOfDay(now)) {
		fieldErrors["startDate"] = "Start date cannot be in the past"
	}
	if len(fieldErrors) > 0 {
		return models.ProjectDate{}, models.ProjectDate{}, fieldErrors
	}
	return models.ProjectDate{Time: start}, models.ProjectDate{Time: end}, nil
}

// CreateProject validates and stores a new project. Names are unique
// case-insensitively across the store.
func (s *ProjectService) CreateProject(input ProjectInput, now time.Time) (*models.Project, error) {
	fieldErrors := map[string]string{}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors["name"] = "Project name is required"
	}
	start, end, dateErrors := validateProjectDates(input, now, true)
	for k, v := range dateErrors {
		fieldErrors[k] = v
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if _, err := s.projectRepo.GetByName(name); err == nil {
		return nil, ErrDuplicateProjectName
	} else if !errors.Is(err, repositories.ErrProjectNotFound) {
		return nil, fmt.Errorf("checking project name %q: %w", name, err)
	}

	project := &models.Project{
		Name:           name,
		Code:           strings.TrimSpace(input.Code),
		Description:    strings.TrimSpace(input.Description),
		Status:         strings.TrimSpace(input.Status),
		StartDate:      start,
		EndDate:        end,
		ProjectManager: strings.TrimSpace(input.ProjectManager),
		AssignedUsers:  models.StringList(input.AssignedUsers),
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("creating project %q: %w", name, err)
	}
	log.Printf("[CreateProject] created project %s (%q)", project.ID, project.Name)
	return project, nil
}

// UpdateProject validates and stores changes to an existing project. The
// past-start-date rule does not apply here: a running project necessarily
// started in the past.
func (s *ProjectService) UpdateProject(id string, input ProjectInput) (*models.Project, error) {
	project, err := s.projectRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	fieldErrors := map[string]string{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors["name"] = "Project name is required"
	}
	start, end, dateErrors := validateProjectDates(input, time.Time{}, false)
	for k, v := range dateErrors {
		fieldErrors[k] = v
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	if !strings.EqualFold(name, project.Name) {
		if _, err := s.projectRepo.GetByName(name); err == nil {
			return nil, ErrDuplicateProjectName
		} else if !errors.Is(err, repositories.ErrProjectNotFound) {
			return nil, fmt.Errorf("checking project name %q: %w", name, err)
		}
	}

	project.Name = name
	project.Code = strings.TrimSpace(input.Code)
	project.Description = strings.TrimSpace(input.Description)
	project.Status = strings.TrimSpace(input.Status)
	project.StartDate = start
	project.EndDate = end
	project.ProjectManager = strings.TrimSpace(input.ProjectManager)
	project.AssignedUsers = models.StringList(input.AssignedUsers)

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("updating project %s: %w", id, err)
	}
	log.Printf("[UpdateProject] updated project %s (%q)", id, project.Name)
	return project, nil
}

// DeleteProject removes a project by id.
func (s *ProjectService) DeleteProject(id string) error {
	if err := s.projectRepo.Delete(id); err != nil {
		return err
	}
	log.Printf("[DeleteProject] deleted project %s", id)
	return nil
}
