package api

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"flowboard-api/domain"
)

func listBoards(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, logger, "boards.list")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		boards, fetchErr := store.ListBoards(ctx)
		metrics.ObserveStore(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch boards"})
			return err
		}
		metrics.SetRowsReturned(len(boards))

		if boards == nil {
			boards = []domain.Board{}
		}
		err = c.JSON(http.StatusOK, boards)
		return err
	}
}

func createBoard(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var body createBoardRequest
		if err := decodeBody(c.Request().Body, &body); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if strings.TrimSpace(body.Name) == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "name is required"})
		}

		now := time.Now().UTC()
		board := domain.Board{
			ID:        body.ID,
			Name:      body.Name,
			Icon:      body.Icon,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if board.ID == "" {
			board.ID = newID()
		}

		if err := store.CreateBoard(ctx, board); err != nil {
			logger.WithError(err).Error("create board failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to create board"})
		}
		return c.JSON(http.StatusCreated, board)
	}
}

func updateBoard(store Storage, logger *log.Logger, opts Options) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		var patch domain.BoardPatch
		if err := decodeBody(c.Request().Body, &patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		found, err := store.UpdateBoard(ctx, id, patch)
		if err != nil {
			logger.WithError(err).WithField("board", id).Error("update board failed")
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to update board"})
		}
		if !found && opts.StrictNotFound {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "board not found"})
		}
		return c.JSON(http.StatusOK, messageResponse{Message: "Board updated successfully"})
	}
}

func deleteBoard(store Storage, logger *log.Logger, opts Options) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newRequestMetrics(ctx, logger, "boards.delete")
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		id := c.Param("id")

		deleteStart := time.Now()
		found, cascaded, deleteErr := store.DeleteBoard(ctx, id)
		metrics.ObserveStore(time.Since(deleteStart))
		metrics.SetCascadeCount(cascaded)
		if deleteErr != nil {
			metrics.SetErrorStage("storage")
			logger.WithError(deleteErr).WithField("board", id).Error("delete board failed")
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to delete board"})
			return err
		}
		if !found && opts.StrictNotFound {
			err = c.JSON(http.StatusNotFound, errorResponse{Error: "board not found"})
			return err
		}
		err = c.JSON(http.StatusOK, messageResponse{Message: "Board deleted successfully"})
		return err
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// bodies past the size cap.
func decodeBody(r io.Reader, out any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r, updateBodyMaxSize))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}
