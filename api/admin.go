package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/repository"
)

type AdminHandler struct {
	users repository.UserRepository
}

type doctorStatusRequest struct {
	Status string `json:"status"`
}

func NewAdminHandler(users repository.UserRepository) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) Register(router *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	router.PUT("/doctor-status/:id", requireAdmin, h.updateDoctorStatus)
}

func (h *AdminHandler) updateDoctorStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid id"})
		return
	}
	var req doctorStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
		return
	}

	status := domain.DoctorStatus(req.Status)
	switch status {
	case domain.DoctorStatusPending, domain.DoctorStatusApproved, domain.DoctorStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "unknown doctor status"})
		return
	}

	doctor, err := h.users.UpdateDoctorStatus(c.Request.Context(), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":     doctor.ID,
		"name":   doctor.Name,
		"status": string(doctor.Status),
	}})
}
