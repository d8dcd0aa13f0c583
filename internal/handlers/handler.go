package handlers

import (
	"drc_online/internal/logger"
	"drc_online/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Dashboard WebSocket channel on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerSweepRoutes(api)
		h.registerAnalysisRoutes(api)
		h.registerDrcRoutes(api)
		h.registerModelRoutes(api)
		h.registerMeasurementRoutes(api)
	}
}

func (h *Handler) registerSweepRoutes(api *gin.RouterGroup) {
	sweep := api.Group("/sweep")
	{
		sweep.POST("/start", h.startSweep)
		sweep.POST("/stop", h.stopSweep)
		sweep.GET("/status", h.sweepStatus)
		sweep.GET("/config", h.getConfig)
		sweep.PUT("/config", h.updateConfig)
		sweep.GET("/ports", h.scanPorts)
	}
}

func (h *Handler) registerAnalysisRoutes(api *gin.RouterGroup) {
	api.POST("/analysis", h.analyze)
}

func (h *Handler) registerDrcRoutes(api *gin.RouterGroup) {
	drc := api.Group("/drc")
	{
		drc.POST("/calibration", h.saveCalibration)
		drc.GET("/calibration", h.getCalibration)
		drc.POST("/calculate", h.calculateDrc)
	}
}

func (h *Handler) registerModelRoutes(api *gin.RouterGroup) {
	mdl := api.Group("/models")
	{
		mdl.GET("/", h.listModels)
		mdl.POST("/train", h.trainModel)
		mdl.POST("/:name/activate", h.activateModel)
		mdl.POST("/:name/deactivate", h.deactivateModel)
		mdl.PUT("/:name/notes", h.updateModelNotes)
		mdl.DELETE("/:name", h.deleteModel)
	}
}

func (h *Handler) registerMeasurementRoutes(api *gin.RouterGroup) {
	m := api.Group("/measurements")
	{
		m.POST("/", h.saveMeasurement)
		m.GET("/", h.queryMeasurements)
		m.GET("/last", h.lastSaved)
	}
}
