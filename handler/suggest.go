package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/facilities"
	"github.com/openfpp/registry-api-go/search"
)

type suggestResponse struct {
	Facilities []facilities.FacilityResult `json:"facilities"`
	Categories []search.Category           `json:"categories"`
	Locations  []search.Location           `json:"locations"`
}

// Suggest returns a small combined payload of facilities, categories and
// locations matching a name prefix, for typeahead boxes.
func Suggest(svc *search.Service, defaultLocale string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		params := searchParams(ctx)
		locale := ctx.Query("locale", defaultLocale)

		facilityHits, err := svc.SuggestFacilities(ctx.UserContext(), params)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		categoryHits, err := svc.SuggestCategories(ctx.UserContext(), params.Q, locale)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		locationHits, err := svc.SuggestLocations(ctx.UserContext(), params.Q)
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}

		return ctx.JSON(suggestResponse{
			Facilities: facilityHits,
			Categories: categoryHits,
			Locations:  locationHits,
		})
	}
}
