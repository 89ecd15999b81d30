package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskly-api/domain"
	"taskly-api/storage"
	"taskly-api/subscription"
)

// Register wires up all routes on the provided Echo instance. Mutation
// handlers never talk to the hub directly: change notifications are
// driven entirely by the committed change stream.
func Register(e *echo.Echo, store Storage, hub *subscription.Hub, logger *log.Logger, allowedOrigins []string) {
	e.GET("/", root)
	e.POST("/users", postUser(store))
	e.GET("/tasks", getTasks(store, logger))
	e.POST("/tasks", postTask(store, logger))
	e.PUT("/tasks/order", reorderTasks(store, logger))
	e.PUT("/tasks/:id/category", updateTaskCategory(store))
	e.DELETE("/tasks/:id", deleteTask(store, logger))
	e.GET("/ws", streamChanges(hub, logger, allowedOrigins))
}

func root(c echo.Context) error {
	return c.String(http.StatusOK, "taskmanager")
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type categoryRequest struct {
	Category string `json:"category"`
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tasks, err := store.FetchTasks(c.Request().Context())
		if err != nil {
			logger.Errorf("fetch tasks: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error retrieving tasks",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, tasks)
	}
}

func postTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req taskRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
		}
		if req.Title == "" || req.Description == "" || req.Category == "" {
			logger.Errorf("missing required fields: title=%q description=%q category=%q",
				req.Title, req.Description, req.Category)
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Missing required fields"})
		}
		task, err := store.InsertTask(c.Request().Context(), domain.Task{
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
		})
		if err != nil {
			logger.Errorf("add task: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error adding task",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, task)
	}
}

func updateTaskCategory(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req categoryRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
		}
		err := store.UpdateTaskCategory(c.Request().Context(), c.Param("id"), req.Category)
		if errors.Is(err, storage.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Task not found"})
		}
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error updating task category",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Task category updated"})
	}
}

func deleteTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		count, err := store.DeleteTask(c.Request().Context(), c.Param("id"))
		if err != nil {
			logger.Errorf("delete task: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error deleting task",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"acknowledged": true,
			"deletedCount": count,
		})
	}
}

// reorderTasks applies each move as an independent category update, in
// order. There is no atomicity across the batch: an error partway
// through leaves earlier updates committed. Moves that match no task
// are skipped, as a matched-nothing update is not an error here.
func reorderTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var moves []domain.TaskMove
		if err := c.Bind(&moves); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
		}
		ctx := c.Request().Context()
		for _, move := range moves {
			err := store.UpdateTaskCategory(ctx, move.ID, move.Category)
			if errors.Is(err, storage.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				logger.Errorf("update task order: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"message": "Error updating task order",
					"error":   err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Task order updated"})
	}
}

// postUser creates the user unless one with the same email already
// exists. The find-then-insert pair is not atomic; two concurrent
// registrations with the same email can both insert.
func postUser(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		var user map[string]any
		if err := c.Bind(&user); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
		}
		ctx := c.Request().Context()
		email, _ := user["email"].(string)
		existing, err := store.FindUserByEmail(ctx, email)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error registering user",
				"error":   err.Error(),
			})
		}
		if existing != nil {
			return c.JSON(http.StatusOK, echo.Map{
				"message":    "user already exists",
				"insertedId": nil,
			})
		}
		id, err := store.InsertUser(ctx, user)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"message": "Error registering user",
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"acknowledged": true,
			"insertedId":   id,
		})
	}
}
