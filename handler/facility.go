package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/search"
)

// GetFacility returns one facility document by its sequential id.
func GetFacility(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		id, err := ctx.ParamsInt("id")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "facility id must be an integer")
		}

		facility, err := svc.GetFacility(ctx.UserContext(), id)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		if facility == nil {
			return fiber.ErrNotFound
		}
		return ctx.JSON(facility)
	}
}
