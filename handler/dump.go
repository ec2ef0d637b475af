package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"github.com/openfpp/registry-api-go/search"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Dumper matches dump.Dumper; an interface keeps the handler testable.
type Dumper interface {
	Dump(ctx context.Context, params search.Params, w io.Writer) error
}

// DumpCSV streams the full matching facility set as an attachment. The body
// is written page by page, so proxies must not buffer it.
func DumpCSV(dumper Dumper) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		params := searchParams(ctx)

		filename := fmt.Sprintf("data-%s.csv", time.Now().Format("2006-01-02"))
		ctx.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
		ctx.Set("X-Accel-Buffering", "no")

		ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			// The request context is gone once streaming starts; the dump
			// stops on its own when the writer breaks.
			if err := dumper.Dump(context.Background(), params, w); err != nil {
				log.Logger().Error("dump aborted", zap.Error(err))
			}
			w.Flush()
		}))
		return nil
	}
}
