package appointment

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vitalapp/clinic-api/internal/handler"
	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/service/appointment"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/upcoming", h.ListUpcoming)
		appointments.GET("/patient/:patientId", h.ListByPatient)
		appointments.GET("/status/:status", h.ListByStatus)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PUT("/:id", h.UpdateAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

type listQuery struct {
	PatientID string `form:"patientId"`
	Status    string `form:"status"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, a)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	var q listQuery
	if !handler.BindQuery(c, &q) {
		return
	}

	var filters model.AppointmentFilters
	if q.PatientID != "" {
		id, err := uuid.Parse(q.PatientID)
		if err != nil {
			httputil.RespondWithError(c, apperrors.NewFieldValidation("patientId", "must be a valid UUID"))
			return
		}
		filters.PatientID = &id
	}
	if q.Status != "" {
		status, ok := parseStatus(c, q.Status)
		if !ok {
			return
		}
		filters.Status = status
	}

	h.respondList(c, func() ([]*model.Appointment, error) {
		return h.service.List(c.Request.Context(), filters)
	})
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	h.respondList(c, func() ([]*model.Appointment, error) {
		return h.service.Upcoming(c.Request.Context())
	})
}

func (h *Handler) ListByPatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "patientId")
	if !ok {
		return
	}
	h.respondList(c, func() ([]*model.Appointment, error) {
		return h.service.ListByPatient(c.Request.Context(), id)
	})
}

func (h *Handler) ListByStatus(c *gin.Context) {
	status, ok := parseStatus(c, c.Param("status"))
	if !ok {
		return
	}
	h.respondList(c, func() ([]*model.Appointment, error) {
		return h.service.ListByStatus(c.Request.Context(), status)
	})
}

func (h *Handler) respondList(c *gin.Context, list func() ([]*model.Appointment, error)) {
	out, err := list()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) UpdateAppointment(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateAppointmentStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.UpdateStatus(c.Request.Context(), principal, id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	principal, ok := handler.Principal(c)
	if !ok {
		return
	}
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.CancelAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	a, err := h.service.Cancel(c.Request.Context(), principal, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
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

func parseStatus(c *gin.Context, raw string) (model.AppointmentStatus, bool) {
	status := model.AppointmentStatus(strings.ToUpper(raw))
	if !status.Valid() {
		httputil.RespondWithError(c, apperrors.NewFieldValidation("status", "is not a known appointment status"))
		return "", false
	}
	return status, true
}
