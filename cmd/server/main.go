package main

import (
	"os"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/hbiaou/crop-rotation/config"
	"github.com/hbiaou/crop-rotation/database"
	"github.com/hbiaou/crop-rotation/pkg/logger"
	"github.com/hbiaou/crop-rotation/pkg/validate"
	"github.com/hbiaou/crop-rotation/router"

	// Garden
	gardenCtrlImp "github.com/hbiaou/crop-rotation/pkg/garden/controllerImp"
	gardenRepoImp "github.com/hbiaou/crop-rotation/pkg/garden/repositoryImp"
	gardenSvcImp "github.com/hbiaou/crop-rotation/pkg/garden/serviceImp"

	// Crop catalog and rotation sequence
	cropCtrlImp "github.com/hbiaou/crop-rotation/pkg/crop/controllerImp"
	cropRepoImp "github.com/hbiaou/crop-rotation/pkg/crop/repositoryImp"
	cropSvcImp "github.com/hbiaou/crop-rotation/pkg/crop/serviceImp"

	// Distribution targets
	distCtrlImp "github.com/hbiaou/crop-rotation/pkg/distribution/controllerImp"
	distRepoImp "github.com/hbiaou/crop-rotation/pkg/distribution/repositoryImp"
	distSvcImp "github.com/hbiaou/crop-rotation/pkg/distribution/serviceImp"

	// Cycles
	cycleCtrlImp "github.com/hbiaou/crop-rotation/pkg/cycle/controllerImp"
	cycleRepoImp "github.com/hbiaou/crop-rotation/pkg/cycle/repositoryImp"
	cycleSvcImp "github.com/hbiaou/crop-rotation/pkg/cycle/serviceImp"

	// Export, settings, health
	"github.com/hbiaou/crop-rotation/pkg/export"
	exportCtrlImp "github.com/hbiaou/crop-rotation/pkg/export/controllerImp"
	healthCtrlImp "github.com/hbiaou/crop-rotation/pkg/health/controllerImp"
	settingCtrlImp "github.com/hbiaou/crop-rotation/pkg/setting/controllerImp"
	settingRepoImp "github.com/hbiaou/crop-rotation/pkg/setting/repositoryImp"
)

func main() {
	log := logger.New()

	// 1) Config
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("config")
		os.Exit(1)
	}
	logger.Setup(cfg.LogLevel)

	// 2) DB (sqlite) + automigrate + defaults
	db, err := database.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	if cfg.SeedDefaults {
		if err := database.Seed(db, cfg.CyclesPerYear); err != nil {
			log.WithError(err).Fatal("seed defaults")
		}
	}

	// 3) Repos
	gRepo := gardenRepoImp.New(db)
	cRepo := cropRepoImp.New(db)
	dRepo := distRepoImp.New(db)
	cyRepo := cycleRepoImp.New(db)
	sRepo := settingRepoImp.New(db)

	// 4) Services
	dSvc := distSvcImp.NewDistributionService(dRepo, cRepo, gRepo)
	gSvc := gardenSvcImp.NewGardenService(gRepo, cRepo, cyRepo, dSvc)
	cSvc := cropSvcImp.NewCropService(cRepo)
	cySvc := cycleSvcImp.NewCycleService(cyRepo, gRepo, cRepo, sRepo, dSvc, cycleSvcImp.Options{
		CyclesPerYear: cfg.CyclesPerYear,
		Lookback:      cfg.LookbackDepth,
		StartCategory: cfg.DefaultStartCategory,
	})
	exp := export.New(gRepo, cRepo, cyRepo, cfg.ExportDir)

	// 5) Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.Use(echoMiddleware.Recover())

	r := router.New(e, router.Controllers{
		Garden:       gardenCtrlImp.New(gSvc),
		Crop:         cropCtrlImp.New(cSvc),
		Distribution: distCtrlImp.New(dSvc),
		Cycle:        cycleCtrlImp.New(cySvc),
		Export:       exportCtrlImp.New(exp, gSvc),
		Setting:      settingCtrlImp.New(sRepo),
		Health:       healthCtrlImp.NewHealthCtrl(db),
	})

	// 6) Start
	log.WithField("port", cfg.Port).Info("listening")
	if err := r.Start(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
