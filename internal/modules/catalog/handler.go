package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"carbooking/internal/domain"
	"carbooking/internal/modules/pricing"
	"carbooking/internal/modules/reconcile"
	"carbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/vehicles", h.ListVehicles)
	v1.GET("/vehicles/:id", h.GetVehicle)
	v1.GET("/extras", h.ListExtras)
}

// ListVehicles handles GET /api/v1/vehicles?start=&end=
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.service.ListVehicles(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		switch {
		case errors.Is(err, ErrIncompleteRange),
			errors.Is(err, pricing.ErrInvalidRange),
			errors.Is(err, reconcile.ErrEndBeforeStart):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list vehicles")
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *Handler) GetVehicle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid vehicle id")
		return
	}

	vehicle, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Vehicle not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load vehicle")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"vehicle": vehicle})
}

func (h *Handler) ListExtras(c *gin.Context) {
	extras, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list extras")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"extras": extras})
}
