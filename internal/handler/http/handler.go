package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	_ "github.com/aniladanir/lead-funnel/docs"
	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/metrics"
	"github.com/aniladanir/lead-funnel/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Handler struct {
	leads     service.LeadService
	scheduler service.NudgeScheduler
	server    *http.Server
	startTime time.Time
}

// @title Lead Funnel API
// @version 1.0
// @description Lead intake, inbound webhooks and automated nudges
// @host localhost:8080
// @BasePath /
func NewHttpHandler(addr string, leads service.LeadService, scheduler service.NudgeScheduler, allowedOrigins []string) *Handler {
	h := &Handler{
		leads:     leads,
		scheduler: scheduler,
		startTime: time.Now(),
	}

	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Routes(allowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return h
}

// Routes builds the router wrapped with the CORS policy
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.Gin())

	// register routes
	router.POST("/leads", h.createLead)
	router.GET("/leads/:id", h.getLead)
	router.GET("/leads/:id/messages", h.getMessages)
	router.POST("/webhooks/inbound", h.inboundMessage)
	router.POST("/webhooks/scheduled", h.scheduledCallback)
	router.POST("/scheduler/start", h.startScheduler)
	router.POST("/scheduler/stop", h.stopScheduler)
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	allowCredentials := true
	for _, o := range allowedOrigins {
		// browsers reject credentials with a wildcard origin
		if o == "*" {
			allowCredentials = false
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: allowCredentials,
	})(router)
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// CreateLead godoc
// @Summary Create a lead
// @Description Stores the lead, sends the welcome message and schedules the first nudge
// @Tags Leads
// @Accept json
// @Produce json
// @Param lead body CreateLeadRequest true "Lead"
// @Success 200 {object} LeadResponse
// @Failure 400 {object} ErrorResponse
// @Router /leads [post]
func (h *Handler) createLead(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lead, err := h.leads.CreateLead(c.Request.Context(), service.CreateLeadInput{
		Name:   req.Name,
		Email:  nonEmpty(req.Email),
		Phone:  nonEmpty(req.Phone),
		Source: nonEmpty(req.Source),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLeadResponse(lead))
}

// GetLead godoc
// @Summary Get a lead
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {object} LeadResponse
// @Failure 404 {object} ErrorResponse
// @Router /leads/{id} [get]
func (h *Handler) getLead(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	lead, err := h.leads.GetLead(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLeadResponse(lead))
}

// GetMessages godoc
// @Summary Get the message log of a lead
// @Tags Leads
// @Produce json
// @Param id path int true "Lead ID"
// @Success 200 {array} domain.Message
// @Failure 404 {object} ErrorResponse
// @Router /leads/{id}/messages [get]
func (h *Handler) getMessages(c *gin.Context) {
	id, ok := leadID(c)
	if !ok {
		return
	}
	msgs, err := h.leads.ListMessages(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// InboundMessage godoc
// @Summary Receive a message from a lead
// @Description Logs the message, answers FAQ keywords and handles scheduling intent
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param message body InboundRequest true "Inbound message"
// @Success 200 {object} OKResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /webhooks/inbound [post]
func (h *Handler) inboundMessage(c *gin.Context) {
	var req InboundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.leads.HandleInbound(c.Request.Context(), req.LeadID, domain.Channel(req.Channel), req.Content); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// ScheduledCallback godoc
// @Summary Confirm a booked meeting
// @Description Marks the lead as scheduled, which stops nudging. Parameters may come as query or JSON body.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param lead_id query int false "Lead ID"
// @Param meeting_url query string false "Meeting URL"
// @Param version query int false "Expected schedule version"
// @Success 200 {object} OKResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /webhooks/scheduled [post]
func (h *Handler) scheduledCallback(c *gin.Context) {
	var req ScheduledRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.LeadID == 0 && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	if req.LeadID <= 0 || req.MeetingURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lead_id and meeting_url are required"})
		return
	}

	lead, err := h.leads.MarkScheduled(c.Request.Context(), req.LeadID, req.MeetingURL, req.Version)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true, Version: &lead.ScheduleVersion})
}

// StartScheduler godoc
// @Summary Start the nudge scheduler
// @Tags Control
// @Success 200
// @Router /scheduler/start [post]
func (h *Handler) startScheduler(c *gin.Context) {
	h.scheduler.Start()
	c.Status(http.StatusOK)
}

// StopScheduler godoc
// @Summary Stop the nudge scheduler
// @Description Waits for the running tick to finish
// @Tags Control
// @Success 200
// @Failure 500 {object} ErrorResponse
// @Router /scheduler/stop [post]
func (h *Handler) stopScheduler(c *gin.Context) {
	if err := h.scheduler.Stop(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Status(http.StatusOK)
}

// Health godoc
// @Summary Service health
// @Tags Control
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Scheduler: "stopped",
	}
	if h.scheduler.Running() {
		resp.Scheduler = "running"
	}

	status := http.StatusOK
	if err := h.leads.Ping(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func leadID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid lead id"})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrLeadNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Lead not found"})
	case errors.Is(err, domain.ErrScheduleConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
