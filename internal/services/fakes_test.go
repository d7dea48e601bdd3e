package services_test

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/models"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/timecalc"
)

// fakeTimesheetRepo is an in-memory TimesheetRepositoryInterface. Error hooks
// let one test force a store failure on a specific entry id.
type fakeTimesheetRepo struct {
	mu      sync.Mutex
	entries map[string]models.TimesheetEntry
	nextID  int

	failGetByID      map[string]error
	failUpdateStatus map[string]error
	sumErr           error

	// Hooks run before the lock is taken, letting a test hold one call
	// open while another goroutine proceeds.
	sumHook          func()
	updateStatusHook func()
}

func newFakeTimesheetRepo() *fakeTimesheetRepo {
	return &fakeTimesheetRepo{
		entries:          make(map[string]models.TimesheetEntry),
		failGetByID:      make(map[string]error),
		failUpdateStatus: make(map[string]error),
	}
}

func (r *fakeTimesheetRepo) seed(entries ...models.TimesheetEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
		if n, err := strconv.Atoi(e.ID); err == nil && n > r.nextID {
			r.nextID = n
		}
	}
}

func (r *fakeTimesheetRepo) sortedIDs() []string {
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids
}

func (r *fakeTimesheetRepo) List() ([]models.TimesheetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TimesheetEntry, 0, len(r.entries))
	for _, id := range r.sortedIDs() {
		out = append(out, r.entries[id])
	}
	return out, nil
}

func (r *fakeTimesheetRepo) GetByID(id string) (*models.TimesheetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failGetByID[id]; err != nil {
		return nil, err
	}
	e, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrEntryNotFound
	}
	copied := e
	return &copied, nil
}

func (r *fakeTimesheetRepo) listWhere(keep func(models.TimesheetEntry) bool) ([]models.TimesheetEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.TimesheetEntry{}
	for _, id := range r.sortedIDs() {
		if e := r.entries[id]; keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeTimesheetRepo) GetByProject(projectName string) ([]models.TimesheetEntry, error) {
	return r.listWhere(func(e models.TimesheetEntry) bool { return e.ProjectName == projectName })
}

func (r *fakeTimesheetRepo) GetByUser(userEmail string) ([]models.TimesheetEntry, error) {
	return r.listWhere(func(e models.TimesheetEntry) bool { return e.User == userEmail })
}

func (r *fakeTimesheetRepo) GetByProjectAndUser(projectName, userEmail string) ([]models.TimesheetEntry, error) {
	return r.listWhere(func(e models.TimesheetEntry) bool {
		return e.ProjectName == projectName && e.User == userEmail
	})
}

func (r *fakeTimesheetRepo) Create(e *models.TimesheetEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = strconv.Itoa(r.nextID)
	r.entries[e.ID] = *e
	return nil
}

func (r *fakeTimesheetRepo) Update(e *models.TimesheetEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[e.ID]; !ok {
		return repositories.ErrEntryNotFound
	}
	r.entries[e.ID] = *e
	return nil
}

func (r *fakeTimesheetRepo) UpdateStatus(id, newStatus, comment string) error {
	if r.updateStatusHook != nil {
		r.updateStatusHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpdateStatus[id]; err != nil {
		return err
	}
	e, ok := r.entries[id]
	if !ok {
		return repositories.ErrEntryNotFound
	}
	e.ApprovalStatus = newStatus
	e.Comment = comment
	r.entries[id] = e
	return nil
}

func (r *fakeTimesheetRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return repositories.ErrEntryNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *fakeTimesheetRepo) SumHoursOnDate(userEmail string, day time.Time, excludeID string) (int, error) {
	if r.sumHook != nil {
		r.sumHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sumErr != nil {
		return 0, r.sumErr
	}
	total := 0
	for _, e := range r.entries {
		if e.User != userEmail || e.ID == excludeID {
			continue
		}
		if e.ApprovalStatus != models.StatusPending && e.ApprovalStatus != models.StatusApproved {
			continue
		}
		if timecalc.SameDay(e.Date.Time, day) {
			total += e.Hours
		}
	}
	return total, nil
}

func (r *fakeTimesheetRepo) TotalHoursByProject(projectName string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, e := range r.entries {
		if e.ProjectName == projectName {
			total += e.Hours
		}
	}
	return total, nil
}

func (r *fakeTimesheetRepo) TotalHoursByProjectForUser(projectName, userEmail string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, e := range r.entries {
		if e.ProjectName == projectName && e.User == userEmail {
			total += e.Hours
		}
	}
	return total, nil
}

// fakeProjectRepo is an in-memory ProjectRepositoryInterface.
type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]models.Project
	nextID   int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]models.Project)}
}

func (r *fakeProjectRepo) seed(projects ...models.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range projects {
		r.projects[p.ID] = p
		if n, err := strconv.Atoi(p.ID); err == nil && n > r.nextID {
			r.nextID = n
		}
	}
}

func (r *fakeProjectRepo) List() ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.projects))
	for id := range r.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	out := make([]models.Project, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.projects[id])
	}
	return out, nil
}

func (r *fakeProjectRepo) ListForUser(userEmail string) ([]models.Project, error) {
	all, _ := r.List()
	out := []models.Project{}
	for _, p := range all {
		if p.ProjectManager == userEmail {
			out = append(out, p)
			continue
		}
		for _, u := range p.AssignedUsers {
			if u == userEmail {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeProjectRepo) GetByID(id string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, repositories.ErrProjectNotFound
	}
	copied := p
	return &copied, nil
}

func (r *fakeProjectRepo) GetByName(name string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if strings.EqualFold(p.Name, name) {
			copied := p
			return &copied, nil
		}
	}
	return nil, repositories.ErrProjectNotFound
}

func (r *fakeProjectRepo) Create(p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = strconv.Itoa(r.nextID)
	r.projects[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) Update(p *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID]; !ok {
		return repositories.ErrProjectNotFound
	}
	r.projects[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return repositories.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}
