package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/search"
)

// Catalog listing endpoints. These back filter dropdowns and change only
// when a new indexing run lands, so the cache middleware fronts them.

func GetFacilityTypes(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		types, err := svc.GetFacilityTypes(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(types)
	}
}

func GetOwnerships(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		ownerships, err := svc.GetOwnerships(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(ownerships)
	}
}

func GetLocations(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		locations, err := svc.GetLocations(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(locations)
	}
}

func GetCategories(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		categories, err := svc.GetCategories(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(categories)
	}
}

func GetCategoryGroups(svc *search.Service) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		groups, err := svc.GetCategoryGroups(ctx.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, err.Error())
		}
		return ctx.JSON(groups)
	}
}
