package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aididalam/tasktrack/internal/models"
	"github.com/aididalam/tasktrack/internal/services"
)

const taskNotFoundMessage = "Task not found"

// HandleListTasks stores the submitted criteria as the user's current
// filter, then responds with the narrowed task list. Submitting no
// query parameters clears the stored criteria.
func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newUnauthorizedError(http.StatusText(http.StatusUnauthorized)))
		return
	}

	filter, ok := bindTaskFilter(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(c, userID, filter)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, tasks)
}

type createTaskRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"required"`
	Status      string `json:"status" binding:"required,oneof='To Do' 'In Progress' 'Done'"`
	DueDate     string `json:"due_date" binding:"required"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newUnauthorizedError(http.StatusText(http.StatusUnauthorized)))
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind create task request")
		abortWithBindError(c, err)
		return
	}

	dueDate, err := models.ParseDate(req.DueDate)
	if err != nil {
		abortWithFieldErrors(c, map[string]string{
			"due_date": "must be a valid date in YYYY-MM-DD format",
		})
		return
	}

	tasks, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		DueDate:     &dueDate,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidTaskStatus) {
			abortWithFieldErrors(c, map[string]string{
				"status": "must be one of: To Do, In Progress, Done",
			})
			return
		}

		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusCreated, tasks)
}

type updateTaskRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=255"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty" binding:"omitempty,oneof='To Do' 'In Progress' 'Done'"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newUnauthorizedError(http.StatusText(http.StatusUnauthorized)))
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		abort(c, newBadRequestError("no task id provided"))
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to bind update task request")
		abortWithBindError(c, err)
		return
	}

	params := services.UpdateTaskParams{
		ID:          taskID,
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	}
	if req.DueDate != nil {
		dueDate, err := models.ParseDate(*req.DueDate)
		if err != nil {
			abortWithFieldErrors(c, map[string]string{
				"due_date": "must be a valid date in YYYY-MM-DD format",
			})
			return
		}
		params.DueDate = &dueDate
	}

	task, err := h.tasks.UpdateTask(c, params)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTaskNotFound):
			abort(c, newNotFoundError(taskNotFoundMessage))
		case errors.Is(err, services.ErrInvalidTaskStatus):
			abortWithFieldErrors(c, map[string]string{
				"status": "must be one of: To Do, In Progress, Done",
			})
		default:
			h.logger.Error().
				Err(err).
				Msg("failed to update task")
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, task)
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := getStringFromContext(c, userIDCtxKey)
	if !ok {
		h.logger.Error().Msg("no user id found in context")
		abort(c, newUnauthorizedError(http.StatusText(http.StatusUnauthorized)))
		return
	}

	taskID := c.Param("id")
	if taskID == "" {
		abort(c, newBadRequestError("no task id provided"))
		return
	}

	err := h.tasks.DeleteTask(c, taskID, userID)
	if err != nil {
		if errors.Is(err, services.ErrTaskNotFound) {
			abort(c, newNotFoundError(taskNotFoundMessage))
			return
		}

		h.logger.Error().
			Err(err).
			Msg("failed to delete task")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// bindTaskFilter reads the listing query parameters. Date params must
// be well-formed so the composed predicate only ever sees valid dates.
func bindTaskFilter(c *gin.Context) (models.TaskFilter, bool) {
	filter := models.TaskFilter{
		SearchText: c.Query("q"),
		Statuses:   c.Query("statuses"),
	}

	fields := map[string]string{}
	if raw := c.Query("startDate"); raw != "" {
		startDate, err := models.ParseDate(raw)
		if err != nil {
			fields["startDate"] = "must be a valid date in YYYY-MM-DD format"
		} else {
			filter.StartDate = &startDate
		}
	}
	if raw := c.Query("endDate"); raw != "" {
		endDate, err := models.ParseDate(raw)
		if err != nil {
			fields["endDate"] = "must be a valid date in YYYY-MM-DD format"
		} else {
			filter.EndDate = &endDate
		}
	}

	if len(fields) > 0 {
		abortWithFieldErrors(c, fields)
		return models.TaskFilter{}, false
	}
	return filter, true
}
