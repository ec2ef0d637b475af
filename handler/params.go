package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/openfpp/registry-api-go/search"
)

// searchParams reads the optional filter query string into search params.
// Absent and malformed values both mean "not filtered".
func searchParams(ctx *fiber.Ctx) search.Params {
	params := search.Params{
		Q:         ctx.Query("q"),
		Category:  intQuery(ctx, "category"),
		Type:      intQuery(ctx, "type"),
		Ownership: intQuery(ctx, "ownership"),
		Location:  intQuery(ctx, "location"),
		Size:      intQuery(ctx, "size"),
		From:      intQuery(ctx, "from"),
		Sort:      ctx.Query("sort"),
	}
	if params.Category == 0 {
		params.Category = intQuery(ctx, "service")
	}

	lat, latErr := strconv.ParseFloat(ctx.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(ctx.Query("lng"), 64)
	if latErr == nil && lngErr == nil {
		params.Lat = &lat
		params.Lng = &lng
	}

	return params
}

func intQuery(ctx *fiber.Ctx, key string) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return 0
	}
	return v
}
