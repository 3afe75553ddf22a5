package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"civicreport/metrics"
	"civicreport/models"
	"civicreport/service"
	ws "civicreport/websocket"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

const (
	// ServiceName is reported by the health check.
	ServiceName = "civic-report-service"

	// formOverhead is the room left for text fields next to the photo.
	formOverhead = 1 << 20
)

// Handlers holds all HTTP handlers
type Handlers struct {
	svc *service.Service
	hub *ws.Hub
}

// NewHandlers creates a new handlers instance. hub may be nil, which
// disables the live feed.
func NewHandlers(svc *service.Service, hub *ws.Hub) *Handlers {
	return &Handlers{
		svc: svc,
		hub: hub,
	}
}

type reportForm struct {
	Title       string `form:"title"`
	Category    string `form:"category"`
	Priority    string `form:"priority"`
	Location    string `form:"location"`
	Description string `form:"description"`
}

// RegisterRoutes mounts the report API on router.
func (h *Handlers) RegisterRoutes(router gin.IRouter) {
	api := router.Group("/api")
	{
		api.POST("/report", h.SubmitReport)
		api.GET("/reports", h.ListReports)
		api.GET("/reports/status/count", h.GetStatusCounts)
		api.GET("/reports/listen", h.ListenReports)
		api.GET("/reports/:id", h.GetReport)
		api.PATCH("/reports/:id/status", h.UpdateReportStatus)
		api.PATCH("/reports/:id", h.UpdateReportStatus)
		api.GET("/tasks/:id", h.GetTask)
		api.GET("/departments", h.ListDepartments)
	}

	router.GET("/health", h.HealthCheck)
	router.GET("/help", h.Help)
}

// SubmitReport handles POST /api/report
func (h *Handlers) SubmitReport(c *gin.Context) {
	maxPhoto := h.svc.MaxPhotoBytes()
	if maxPhoto > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhoto+formOverhead)
	}

	var form reportForm
	if err := c.ShouldBind(&form); err != nil {
		h.rejectForm(c, err)
		return
	}

	photo, err := readPhoto(c, maxPhoto)
	if err != nil {
		h.rejectForm(c, err)
		return
	}

	report, err := h.svc.Submit(c.Request.Context(), models.NewReport{
		Title:       form.Title,
		Category:    form.Category,
		Priority:    form.Priority,
		Location:    form.Location,
		Description: form.Description,
		Photo:       photo,
	})
	if err != nil {
		h.rejectForm(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// readPhoto returns the optional "photo" upload, nil when absent or empty.
func readPhoto(c *gin.Context, maxBytes int64) ([]byte, error) {
	header, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, service.ErrPayloadTooLarge
	}

	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := io.Reader(f)
	if maxBytes > 0 {
		// One extra byte lets the service see an oversize payload.
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (h *Handlers) rejectForm(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, service.ErrPayloadTooLarge) || errors.As(err, &maxBytesErr):
		metrics.RejectedSubmissionsTotal.WithLabelValues("payload_too_large").Inc()
		log.Warnf("Rejected report submission: %v", err)
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: service.ErrPayloadTooLarge.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		metrics.RejectedSubmissionsTotal.WithLabelValues("invalid_input").Inc()
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	default:
		metrics.RejectedSubmissionsTotal.WithLabelValues("bad_request").Inc()
		log.Warnf("Failed to read report submission: %v", err)
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Could not read form input."})
	}
}

// ListReports handles GET /api/reports
func (h *Handlers) ListReports(c *gin.Context) {
	var filter models.ReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid query parameters"})
		return
	}
	if filter.Location == "" {
		filter.Location = c.Query("location_contains")
	}

	c.JSON(http.StatusOK, h.svc.List(filter))
}

// GetReport handles GET /api/reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.svc.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// UpdateReportStatus handles PATCH /api/reports/:id/status
func (h *Handlers) UpdateReportStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid status value"})
		return
	}

	report, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetTask handles GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.svc.GetTask(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// ListDepartments handles GET /api/departments
func (h *Handlers) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.ListDepartments())
}

// GetStatusCounts handles GET /api/reports/status/count
func (h *Handlers) GetStatusCounts(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CountByStatus())
}

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ListenReports upgrades to a WebSocket streaming report events.
func (h *Handlers) ListenReports(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "Live feed disabled"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Service: ServiceName,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Help handles GET /help
func (h *Handlers) Help(c *gin.Context) {
	c.String(http.StatusOK, `
	Civic report API:
	POST  /api/report                 submit a report (form fields, optional photo file)
	GET   /api/reports                list reports (status, category, priority, location, department)
	GET   /api/reports/:id            read a report
	PATCH /api/reports/:id/status     change status (Submitted, In Progress, Resolved, Rejected)
	GET   /api/tasks/:id              read the task of a report
	GET   /api/departments            list departments
	GET   /api/reports/status/count   count reports by status
	GET   /api/reports/listen         live feed (WebSocket)
	`)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Report id must be a positive integer"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Report not found"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid status value"})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrPayloadTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: service.ErrPayloadTooLarge.Error()})
	default:
		log.Errorf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Internal error"})
	}
}
