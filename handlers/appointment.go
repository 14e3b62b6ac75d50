package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-backend/models"
	"clinic-backend/services"
)

type AppointmentHandler struct {
	svc    *services.AppointmentService
	events *EventPublisher
}

func NewAppointmentHandler(svc *services.AppointmentService, events *EventPublisher) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, events: events}
}

type AppointmentResponse struct {
	ID          uint    `json:"id"`
	PatientID   uint    `json:"patient_id"`
	PatientName string  `json:"patient_name"`
	DoctorID    uint    `json:"doctor_id"`
	DoctorName  string  `json:"doctor_name"`
	DateTime    string  `json:"date_time"`
	Type        string  `json:"type"`
	Notes       *string `json:"notes"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	var q services.AppointmentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query parameters: "+err.Error())
		return
	}
	views, err := h.svc.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponses(views))
}

func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	id, ok := pathID(c, "appointment")
	if !ok {
		return
	}
	view, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(view))
}

func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req services.CreateAppointmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	view, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toAppointmentResponse(view)
	h.events.Publish(models.EventAppointmentCreated, view.ID, resp)
	c.JSON(http.StatusCreated, resp)
}

func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	id, ok := pathID(c, "appointment")
	if !ok {
		return
	}
	var req services.AppointmentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	view, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toAppointmentResponse(view)
	h.events.Publish(models.EventAppointmentUpdated, view.ID, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *AppointmentHandler) PatchStatus(c *gin.Context) {
	id, ok := pathID(c, "appointment")
	if !ok {
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	view, err := h.svc.PatchStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := toAppointmentResponse(view)
	h.events.Publish(models.EventAppointmentStatusChanged, view.ID, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	id, ok := pathID(c, "appointment")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventAppointmentDeleted, id, nil)
	c.Status(http.StatusNoContent)
}

func toAppointmentResponse(v *models.AppointmentView) AppointmentResponse {
	return AppointmentResponse{
		ID:          v.ID,
		PatientID:   v.PatientID,
		PatientName: v.PatientName,
		DoctorID:    v.DoctorID,
		DoctorName:  v.DoctorName,
		DateTime:    formatDateTime(v.DateTime),
		Type:        v.Type,
		Notes:       v.Notes,
		Status:      v.Status,
		CreatedAt:   formatDateTime(v.CreatedAt),
	}
}

func toAppointmentResponses(views []models.AppointmentView) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(views))
	for i := range views {
		out = append(out, toAppointmentResponse(&views[i]))
	}
	return out
}
