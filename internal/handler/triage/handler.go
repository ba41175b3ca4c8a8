package triage

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/handler"
	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/service/triage"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/httputil"
)

type Handler struct {
	service *triage.Service
}

func NewHandler(service *triage.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	triages := r.Group("/triages")
	{
		triages.POST("", h.CreateTriage)
		triages.GET("", h.ListTriages)
		triages.GET("/patient/:patientId", h.ListByPatient)
		triages.GET("/status/:status", h.ListByStatus)
		triages.GET("/:id", h.GetTriage)
		triages.PUT("/:id", h.UpdateTriage)
		triages.PATCH("/:id/status", h.UpdateStatus)
		triages.DELETE("/:id", h.DeleteTriage)
	}
}

// CreateTriage records an intake. Severity 4 and above alerts active staff
// asynchronously; the response does not wait for it.
func (h *Handler) CreateTriage(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}
	var req model.CreateTriageRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Create(c.Request.Context(), principal, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, t)
}

func (h *Handler) ListTriages(c *gin.Context) {
	var filters model.TriageFilters
	if raw := c.Query("patientId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewFieldValidation("patientId", "must be a valid UUID"))
			return
		}
		filters.PatientID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := parseStatus(c, raw)
		if !ok {
			return
		}
		filters.Status = status
	}

	out, err := h.service.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListByPatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "patientId")
	if !ok {
		return
	}

	out, err := h.service.ListByPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListByStatus(c *gin.Context) {
	status, ok := parseStatus(c, c.Param("status"))
	if !ok {
		return
	}

	out, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) GetTriage(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) UpdateTriage(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTriageRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTriageStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) DeleteTriage(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondNoContent(c)
}

func parseStatus(c *gin.Context, raw string) (model.TriageStatus, bool) {
	status := model.TriageStatus(strings.ToUpper(raw))
	if !status.Valid() {
		httputil.RespondWithError(c, apperrors.NewFieldValidation("status", "is not a known triage status"))
		return "", false
	}
	return status, true
}
