package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/medisync/teleclinic/internal/service/booking"
	"github.com/medisync/teleclinic/internal/service/scheduling"
)

type PatientHandler struct {
	bookings  booking.BookingUseCase
	scheduler scheduling.SchedulerUseCase
}

type bookAppointmentRequest struct {
	AppointmentID int64 `json:"appointment_id"`
}

type paymentCompleteRequest struct {
	AppointmentID int64           `json:"appointment_id"`
	PaymentData   json.RawMessage `json:"payment_data"`
}

func NewPatientHandler(bookings booking.BookingUseCase, scheduler scheduling.SchedulerUseCase) *PatientHandler {
	return &PatientHandler{bookings: bookings, scheduler: scheduler}
}

// RegisterParticipant mounts the appointment detail route shared by both
// sides of a consultation; authorization narrows to the slot's own doctor or
// booked patient inside the scheduler.
func (h *PatientHandler) RegisterParticipant(router gin.IRoutes, requireParticipant gin.HandlerFunc) {
	router.GET("/appointment/:id", requireParticipant, h.getAppointment)
}

func (h *PatientHandler) Register(router *gin.RouterGroup, requirePatient gin.HandlerFunc) {
	router.POST("/book-appointment", requirePatient, h.bookAppointment)
	router.POST("/payment-complete", requirePatient, h.paymentComplete)
	router.GET("/my-appointments", requirePatient, h.myAppointments)
	router.GET("/current-appointments", requirePatient, h.currentAppointments)
	router.GET("/appointment/:id", requirePatient, h.getAppointment)
}

func (h *PatientHandler) bookAppointment(c *gin.Context) {
	var req bookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AppointmentID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "appointment_id is required"})
		return
	}

	appointment, err := h.bookings.DirectBook(c.Request.Context(), req.AppointmentID, identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponse(appointment)})
}

func (h *PatientHandler) paymentComplete(c *gin.Context) {
	var req paymentCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AppointmentID == 0 || len(req.PaymentData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "appointment_id and payment_data are required"})
		return
	}

	appointment, err := h.bookings.CompletePaymentAndBook(c.Request.Context(), req.AppointmentID, identityFrom(c).UserID, req.PaymentData)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponse(appointment)})
}

func (h *PatientHandler) myAppointments(c *gin.Context) {
	appointments, err := h.scheduler.ListUpcoming(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponses(appointments)})
}

func (h *PatientHandler) currentAppointments(c *gin.Context) {
	appointments, err := h.scheduler.ListCurrent(c.Request.Context(), identityFrom(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponses(appointments)})
}

func (h *PatientHandler) getAppointment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "invalid id"})
		return
	}
	appointment, err := h.scheduler.GetForParticipant(c.Request.Context(), id, identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toAppointmentResponse(appointment)})
}
