package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/middleware"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/repositories"
	"github.com/gurudatt-kayastha/TimeSheetForWellSky/internal/services"
)

// AppHandler bundles the timesheet, project and approval endpoints.
type AppHandler struct {
	timesheetService services.TimesheetServiceInterface
	projectService   services.ProjectServiceInterface
	approvalService  services.ApprovalServiceInterface
}

// NewAppHandler creates a new AppHandler.
func NewAppHandler(ts services.TimesheetServiceInterface, ps services.ProjectServiceInterface, as services.ApprovalServiceInterface) *AppHandler {
	return &AppHandler{
		timesheetService: ts,
		projectService:   ps,
		approvalService:  as,
	}
}

// respondServiceError translates the error taxonomy to HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": vErr.Fields})
		return
	}
	var limitErr *services.DailyLimitError
	if errors.As(err, &limitErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": limitErr.Error()})
		return
	}
	var partial *services.PartialCommitError
	if errors.As(err, &partial) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   partial.Error(),
			"applied": partial.Applied,
			"failed":  partial.Failed,
		})
		return
	}

	switch {
	case errors.Is(err, repositories.ErrEntryNotFound),
		errors.Is(err, repositories.ErrProjectNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotEntryOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrClosedWindow),
		errors.Is(err, services.ErrImmutableEntry),
		errors.Is(err, services.ErrSubmitInFlight),
		errors.Is(err, services.ErrDuplicateProjectName):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrValidationUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ListEntries returns entries matching the query-string filter.
func (h *AppHandler) ListEntries(c *gin.Context) {
	var filter services.EntryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter parameters: " + err.Error()})
		return
	}
	entries, err := h.timesheetService.ListEntries(filter, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetEntry returns one entry by id.
func (h *AppHandler) GetEntry(c *gin.Context) {
	entry, err := h.timesheetService.GetEntry(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// CreateEntry validates and stores a new entry for the authenticated user.
func (h *AppHandler) CreateEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}

	var body struct {
		ProjectName string `json:"projectName"`
		services.EntryInput
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	entry, err := h.timesheetService.CreateEntry(body.ProjectName, body.EntryInput, user, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	log.Printf("[CreateEntry] user %s created entry %s on %q", user.Email, entry.ID, entry.ProjectName)
	c.JSON(http.StatusCreated, entry)
}

// UpdateEntry validates and stores changes to the user's own pending entry.
func (h *AppHandler) UpdateEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}

	var input services.EntryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	entry, err := h.timesheetService.UpdateEntry(c.Param("id"), input, user, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// DeleteEntry removes the user's own pending entry (admins may remove any
// pending entry).
func (h *AppHandler) DeleteEntry(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}
	if err := h.timesheetService.DeleteEntry(c.Param("id"), user); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted"})
}

// ListProjects returns the projects visible to the authenticated user with
// hour totals.
func (h *AppHandler) ListProjects(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}
	projects, err := h.projectService.ListProjects(user)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// GetProject returns one project by id.
func (h *AppHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.GetProject(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// ProjectEntries returns the authenticated user's entries on one project,
// with the user's hour total.
func (h *AppHandler) ProjectEntries(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}
	project, err := h.projectService.GetProject(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	entries, err := h.timesheetService.ProjectEntriesForUser(project.Name, user.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	total, err := h.timesheetService.ProjectTotalHoursForUser(project.Name, user.Email)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "totalHours": total})
}

// CreateProject stores a new project. Admin only (enforced by middleware).
func (h *AppHandler) CreateProject(c *gin.Context) {
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	project, err := h.projectService.CreateProject(input, time.Now())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// UpdateProject stores changes to a project. Admin only.
func (h *AppHandler) UpdateProject(c *gin.Context) {
	var input services.ProjectInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	project, err := h.projectService.UpdateProject(c.Param("id"), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes a project. Admin only.
func (h *AppHandler) DeleteProject(c *gin.Context) {
	if err := h.projectService.DeleteProject(c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// reviewerSession returns the approval session for the authenticated
// reviewer, creating it on first use.
func (h *AppHandler) reviewerSession(c *gin.Context) (*services.ApprovalSession, bool) {
	userID, exists := c.Get(middleware.CtxUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return nil, false
	}
	return h.approvalService.SessionFor(userID.(string)), true
}

// SelectEntries updates the reviewer's selection set.
func (h *AppHandler) SelectEntries(c *gin.Context) {
	session, ok := h.reviewerSession(c)
	if !ok {
		return
	}

	var body struct {
		IDs      []string `json:"ids"`
		Selected bool     `json:"selected"`
		All      bool     `json:"all"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if body.All {
		session.SelectAllVisible(body.IDs)
	} else {
		for _, id := range body.IDs {
			session.Select(id, body.Selected)
		}
	}
	c.JSON(http.StatusOK, gin.H{"selected": session.SelectedIDs()})
}

// ClearSelection empties the reviewer's selection set. Called whenever the
// review filter changes.
func (h *AppHandler) ClearSelection(c *gin.Context) {
	session, ok := h.reviewerSession(c)
	if !ok {
		return
	}
	session.ClearSelection()
	c.JSON(http.StatusOK, gin.H{"selected": []string{}})
}

// ResetSession discards the reviewer's staging session entirely, dropping
// both the selection set and any staged changes.
func (h *AppHandler) ResetSession(c *gin.Context) {
	userID, exists := c.Get(middleware.CtxUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User is not authenticated"})
		return
	}
	h.approvalService.DropSession(userID.(string))
	c.JSON(http.StatusOK, gin.H{"message": "Session reset"})
}

// StageChanges stages a proposed status for the given entries.
func (h *AppHandler) StageChanges(c *gin.Context) {
	session, ok := h.reviewerSession(c)
	if !ok {
		return
	}

	var body struct {
		IDs       []string `json:"ids"`
		NewStatus string   `json:"newStatus"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	staged, err := h.approvalService.StageBulk(session, body.IDs, body.NewStatus)
	if err != nil {
		if errors.Is(err, services.ErrImmutableEntry) {
			// Some entries staged, some refused: report both.
			c.JSON(http.StatusConflict, gin.H{"staged": staged, "error": err.Error()})
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staged": staged})
}

// PendingChanges returns the staged changes that still differ from the
// store, for the confirmation view.
func (h *AppHandler) PendingChanges(c *gin.Context) {
	session, ok := h.reviewerSession(c)
	if !ok {
		return
	}
	changes, err := h.approvalService.GatherPending(session)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changes": changes})
}

// CommitChanges applies the reviewer's staged changes with an optional
// comment appended to each affected entry.
func (h *AppHandler) CommitChanges(c *gin.Context) {
	session, ok := h.reviewerSession(c)
	if !ok {
		return
	}

	var body struct {
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	applied, err := h.approvalService.Commit(session, body.Comment)
	if err != nil {
		var partial *services.PartialCommitError
		if errors.As(err, &partial) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   partial.Error(),
				"applied": partial.Applied,
				"failed":  partial.Failed,
			})
			return
		}
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
