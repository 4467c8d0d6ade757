package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"flowboard-api/domain"
)

func listItems(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, logger, "items.list")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		boardID := c.QueryParam("boardId")

		fetchStart := time.Now()
		items, fetchErr := store.ListItems(ctx, boardID)
		metrics.ObserveStore(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch items"})
			return err
		}
		metrics.SetRowsReturned(len(items))

		if items == nil {
			items = []domain.Item{}
		}
		err = c.JSON(http.StatusOK, items)
		return err
	}
}

func createItem(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body createItemRequest
		if err := decodeBody(c.Request().Body, &body); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if strings.TrimSpace(body.BoardID) == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "boardId is required"})
		}
		if strings.TrimSpace(body.Name) == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "name is required"})
		}
		if body.Status != "" && !body.Status.Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid status"})
		}
		if body.Priority != "" && !body.Priority.Valid() {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid priority"})
		}
		if body.Progress < 0 || body.Progress > 100 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "progress must be between 0 and 100"})
		}
		if body.DueDate != "" {
			if _, err := time.Parse("2006-01-02", body.DueDate); err != nil {
				return c.JSON(http.StatusBadRequest, errorResponse{Error: "dueDate must be YYYY-MM-DD"})
			}
		}

		now := time.Now().UTC()
		item := domain.Item{
			ID:              body.ID,
			BoardID:         body.BoardID,
			Name:            body.Name,
			Status:          body.Status,
			Priority:        body.Priority,
			Assignee:        body.Assignee,
			ProjectManagers: body.ProjectManagers,
			Tags:            body.Tags,
			DueDate:         body.DueDate,
			Progress:        body.Progress,
			Description:     body.Description,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if item.ID == "" {
			item.ID = newID()
		}
		item.ApplyDefaults()

		if err := store.CreateItem(ctx, item); err != nil {
			logger.WithError(err).Error("create item failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to create item"})
		}
		return c.JSON(http.StatusCreated, item)
	}
}

func updateItem(store Storage, logger *log.Logger, opts Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		// id and createdAt are decoded so clients that send them are not
		// rejected, then dropped: only the ItemPatch fields reach the store.
		var body updateItemRequest
		if err := decodeBody(c.Request().Body, &body); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if err := body.ItemPatch.Validate(); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		}

		found, err := store.UpdateItem(ctx, id, body.ItemPatch)
		if err != nil {
			logger.WithError(err).WithField("item", id).Error("update item failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to update item"})
		}
		if !found && opts.StrictNotFound {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "item not found"})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Item updated successfully"})
	}
}

func deleteItem(store Storage, logger *log.Logger, opts Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		found, err := store.DeleteItem(ctx, id)
		if err != nil {
			logger.WithError(err).WithField("item", id).Error("delete item failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to delete item"})
		}
		if !found && opts.StrictNotFound {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "item not found"})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Item deleted successfully"})
	}
}
