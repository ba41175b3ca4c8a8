package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vitalapp/clinic-api/internal/handler"
	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/search"
	"github.com/vitalapp/clinic-api/internal/service/patient"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
	"github.com/vitalapp/clinic-api/pkg/httputil"
)

type Handler struct {
	service *patient.Service
}

func NewHandler(service *patient.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/active", h.ListActivePatients)
		patients.GET("/search", h.SearchPatients)
		patients.GET("/document/:documentNumber", h.GetPatientByDocument)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.PATCH("/:id/deactivate", h.DeactivatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

// ListPatients serves the filtered, sorted page of patient summaries.
func (h *Handler) ListPatients(c *gin.Context) {
	var params model.PatientListParams
	if !handler.BindQuery(c, &params) {
		return
	}
	q, err := search.ParsePatientQuery(params)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	page, err := h.service.FetchPage(c.Request.Context(), q)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.CreatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, p)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) GetPatientByDocument(c *gin.Context) {
	p, err := h.service.GetByDocumentNumber(c.Request.Context(), c.Param("documentNumber"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) SearchPatients(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		httputil.RespondWithError(c, apperrors.NewFieldValidation("name", "is required"))
		return
	}

	out, err := h.service.SearchByName(c.Request.Context(), name)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) ListActivePatients(c *gin.Context) {
	out, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, out)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdatePatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	p, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeactivatePatient(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) DeletePatient(c *gin.Context) {
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
