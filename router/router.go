package router

import (
	"github.com/labstack/echo/v4"

	cropCtrl "github.com/hbiaou/crop-rotation/pkg/crop/controller"
	cycleCtrl "github.com/hbiaou/crop-rotation/pkg/cycle/controller"
	distCtrl "github.com/hbiaou/crop-rotation/pkg/distribution/controller"
	gardenCtrl "github.com/hbiaou/crop-rotation/pkg/garden/controller"
	"github.com/hbiaou/crop-rotation/pkg/middleware"
)

type Controllers struct {
	Garden       gardenCtrl.GardenController
	Crop         cropCtrl.CropController
	Distribution distCtrl.DistributionController
	Cycle        cycleCtrl.CycleController
	Export       interface {
		Garden(echo.Context) error
		All(echo.Context) error
		Statistics(echo.Context) error
	}
	Setting interface {
		List(echo.Context) error
		Put(echo.Context) error
	}
	Health interface{ Health(echo.Context) error }
}

func New(e *echo.Echo, ctl Controllers) *echo.Echo {
	e.Use(middleware.RequestLogger())

	e.GET("/health", ctl.Health.Health)

	e.GET("/settings", ctl.Setting.List)
	e.PUT("/settings/:key", ctl.Setting.Put)

	e.GET("/gardens", ctl.Garden.List)
	e.POST("/gardens", ctl.Garden.Create)
	e.GET("/gardens/:id", ctl.Garden.Get)
	e.GET("/gardens/:id/stats", ctl.Garden.Stats)
	e.GET("/statistics", ctl.Garden.GlobalStats)

	e.GET("/crops", ctl.Crop.List)
	e.GET("/crops/grouped", ctl.Crop.Grouped)
	e.POST("/crops", ctl.Crop.Create)
	e.POST("/crops/import", ctl.Crop.Import)

	e.GET("/rotation", ctl.Crop.Sequence)
	e.PUT("/rotation", ctl.Crop.ReplaceSequence)

	e.GET("/gardens/:id/distribution", ctl.Distribution.Get)
	e.PUT("/gardens/:id/distribution", ctl.Distribution.Update)

	g := e.Group("/gardens/:id")
	g.POST("/cycles/preview", ctl.Cycle.Preview)
	g.POST("/cycles", ctl.Cycle.Generate)
	g.GET("/cycles", ctl.Cycle.List)
	g.DELETE("/cycles/latest", ctl.Cycle.Undo)
	g.GET("/cycles/:cycle", ctl.Cycle.Get)
	g.POST("/cycles/:cycle/finalize", ctl.Cycle.Finalize)
	g.GET("/bootstrap/proposal", ctl.Cycle.ProposeBootstrap)
	g.POST("/bootstrap", ctl.Cycle.Bootstrap)
	e.PATCH("/plans/:plan_id", ctl.Cycle.Override)

	// :cycle may carry the .xlsx suffix
	e.GET("/export/gardens/:id/cycles/:cycle", ctl.Export.Garden)
	e.GET("/export/cycles/:cycle", ctl.Export.All)
	e.GET("/export/statistics", ctl.Export.Statistics)
	return e
}
