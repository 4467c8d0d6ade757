package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, logger *log.Logger, opts Options) {
	e.GET("/api/boards", listBoards(store, logger))
	e.POST("/api/boards", createBoard(store, logger))
	e.PUT("/api/boards/:id", updateBoard(store, logger, opts))
	e.DELETE("/api/boards/:id", deleteBoard(store, logger, opts))

	e.GET("/api/items", listItems(store, logger))
	e.POST("/api/items", createItem(store, logger))
	e.PUT("/api/items/:id", updateItem(store, logger, opts))
	e.DELETE("/api/items/:id", deleteItem(store, logger, opts))

	if opts.SeedEnabled {
		e.GET("/api/seed", seed(store, logger))
	}

	e.GET("/healthz", healthz(store))
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
		return c.String(http.StatusOK, "ok")
	}
}

// seed wipes both collections and loads the demo fixtures. Destructive; only
// registered when Options.SeedEnabled is set.
func seed(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		boards, items, err := store.Reseed(ctx)
		if err != nil {
			logger.WithError(err).Error("reseed failed")
			return c.JSON(http.StatusInternalServerError, seedResponse{
				Success: false,
				Error:   "Failed to seed database",
			})
		}

		logger.WithFields(log.Fields{"boards": boards, "items": items}).Info("database reseeded")
		return c.JSON(http.StatusOK, seedResponse{
			Success: true,
			Message: "Database seeded successfully!",
			Data:    &seedCount{Boards: boards, Items: items},
		})
	}
}
