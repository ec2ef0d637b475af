package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/search"
)

// Search runs a filtered, sorted, paginated facility search. Filters combine
// with logical AND; see searchParams for the accepted query keys.
func Search(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		page, err := svc.SearchFacilities(ctx.UserContext(), searchParams(ctx))
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(page)
	}
}
