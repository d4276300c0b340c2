package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medisync/teleclinic/internal/domain"
	"github.com/medisync/teleclinic/internal/repository"
	"github.com/medisync/teleclinic/internal/service/scheduling"
)

type DoctorHandler struct {
	scheduler     scheduling.SchedulerUseCase
	notifications repository.NotificationRepository
}

type createSlotRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func NewDoctorHandler(scheduler scheduling.SchedulerUseCase, notifications repository.NotificationRepository) *DoctorHandler {
	return &DoctorHandler{scheduler: scheduler, notifications: notifications}
}

// Register wires the doctor routes. time_slots stays public so patients can
// browse availability before authenticating.
func (h *DoctorHandler) Register(router *gin.RouterGroup, requireDoctor gin.HandlerFunc) {
	router.GET("/time_slots", h.timeSlots)
	router.POST("/appointment", requireDoctor, h.createSlot)
	router.GET("/appointment", requireDoctor, h.listSlots)
	router.GET("/appointment/:id", requireDoctor, h.getSlot)
	router.PUT("/appointment-status/:id", requireDoctor, h.updateStatus)
	router.GET("/notifications", requireDoctor, h.listNotifications)
	router.PUT("/read-notification/:id", requireDoctor, h.readNotification)
}

func (h *DoctorHandler) createSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
		return
	}

	slot, err := h.scheduler.CreateSlot(c.Request.Context(), scheduling.CreateSlotInput{
		DoctorID:  identityFrom(c).UserID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(slot))
}

func (h *DoctorHandler) timeSlots(c *gin.Context) {
	doctorID, err := strconv.ParseInt(c.Query("doctor_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid doctor_id"})
		return
	}
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "date is required"})
		return
	}

	slots, err := h.scheduler.ListAvailableSlots(c.Request.Context(), doctorID, date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponses(slots)})
}

func (h *DoctorHandler) listSlots(c *gin.Context) {
	slots, err := h.scheduler.ListDoctorSlots(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponses(slots)})
}

func (h *DoctorHandler) getSlot(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid id"})
		return
	}
	slot, err := h.scheduler.GetForParticipant(c.Request.Context(), id, identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponse(slot)})
}

func (h *DoctorHandler) updateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid id"})
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
		return
	}

	slot, err := h.scheduler.UpdateStatus(c.Request.Context(), id, domain.AppointmentStatus(req.Status), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponse(slot)})
}

func (h *DoctorHandler) listNotifications(c *gin.Context) {
	notifications, err := h.notifications.ListByDoctor(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		out = append(out, toNotificationResponse(&notifications[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *DoctorHandler) readNotification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid id"})
		return
	}
	notification, err := h.notifications.MarkRead(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toNotificationResponse(notification)})
}
