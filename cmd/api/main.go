package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/openfpp/registry-api-go/config"
	"github.com/openfpp/registry-api-go/dump"
	"github.com/openfpp/registry-api-go/handler"
	"github.com/openfpp/registry-api-go/middleware/auth"
	"github.com/openfpp/registry-api-go/middleware/cache"
	log "github.com/openfpp/registry-api-go/pkg/logger"
	"github.com/openfpp/registry-api-go/repository"
	"github.com/openfpp/registry-api-go/search"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Application struct {
	app      *fiber.App
	settings *config.Settings
	svc      *search.Service
	dumper   *dump.Dumper
	repo     *repository.Repository
}

func (a *Application) Register() {
	a.app.Get("/healthcheck", handler.Healthcheck)
	a.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	a.app.Get("/monitor", monitor.New())
	a.app.Get("/search", handler.Search(a.svc))
	a.app.Get("/suggest", handler.Suggest(a.svc, a.settings.DefaultLocale))
	a.app.Get("/facilities/:id", handler.GetFacility(a.svc))
	a.app.Get("/facility_types", handler.GetFacilityTypes(a.svc))
	a.app.Get("/ownerships", handler.GetOwnerships(a.svc))
	a.app.Get("/locations", handler.GetLocations(a.svc))
	a.app.Get("/categories", handler.GetCategories(a.svc))
	a.app.Get("/category_groups", handler.GetCategoryGroups(a.svc))
	a.app.Get("/dump", handler.DumpCSV(a.dumper))
	a.app.Get("/runs", handler.ListRuns(a.repo))
}

func main() {
	settings := loadSettings()

	svc := search.NewService(settings.Elasticsearch.URL, settings.Elasticsearch.IndexPrefix, settings.LocaleCodes())
	dumper := dump.New(svc, settings.Dump.PageSize, settings.LocaleCodes())

	repo := repository.New()
	defer repo.Close()

	app := fiber.New()
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New())
	app.Use(recover.New())
	app.Use(auth.New())
	app.Use(pprof.New())
	app.Use(cache.New())

	application := &Application{app: app, settings: settings, svc: svc, dumper: dumper, repo: repo}
	application.Register()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT)
	signal.Notify(c, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Println("application gracefully shutting down..")
		_ = app.Shutdown()
	}()

	if err := app.Listen(":80"); err != nil {
		panic(fmt.Sprintf("app error: %s", err.Error()))
	}
}

func loadSettings() *config.Settings {
	path := os.Getenv("SETTINGS_PATH")
	if path == "" {
		path = "settings.yml"
	}
	settings, err := config.Load(path)
	if err != nil {
		log.Logger().Warn("settings file not loaded, using defaults", zap.String("path", path), zap.Error(err))
		return config.Default()
	}
	return settings
}
