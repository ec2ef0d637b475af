package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/repository"
)

const runListLimit = 50

// ListRuns returns the most recent indexing run reports, newest first.
func ListRuns(repo *repository.Repository) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		reports, err := repo.ListRunReports(ctx.UserContext(), runListLimit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return ctx.JSON(reports)
	}
}
