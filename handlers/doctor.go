package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-backend/models"
	"clinic-backend/services"
)

type DoctorHandler struct {
	svc    *services.DoctorService
	events *EventPublisher
}

func NewDoctorHandler(svc *services.DoctorService, events *EventPublisher) *DoctorHandler {
	return &DoctorHandler{svc: svc, events: events}
}

type DoctorResponse struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	LicenseNumber string  `json:"license_number"`
	Specialty     string  `json:"specialty"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	RegisteredAt  string  `json:"registered_at"`
}

func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDoctorResponses(doctors))
}

func (h *DoctorHandler) SearchDoctors(c *gin.Context) {
	doctors, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDoctorResponses(doctors))
}

func (h *DoctorHandler) ListSpecialties(c *gin.Context) {
	specialties, err := h.svc.Specialties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if specialties == nil {
		specialties = []string{}
	}
	c.JSON(http.StatusOK, specialties)
}

func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	id, ok := pathID(c, "doctor")
	if !ok {
		return
	}
	doctor, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDoctorResponse(doctor))
}

func (h *DoctorHandler) CreateDoctor(c *gin.Context) {
	var req services.CreateDoctorInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	doctor, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventDoctorCreated, doctor.ID, models.DoctorEntry(doctor))
	c.JSON(http.StatusCreated, toDoctorResponse(doctor))
}

func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	id, ok := pathID(c, "doctor")
	if !ok {
		return
	}
	var req services.DoctorUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	doctor, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventDoctorUpdated, doctor.ID, models.DoctorEntry(doctor))
	c.JSON(http.StatusOK, toDoctorResponse(doctor))
}

func (h *DoctorHandler) DeleteDoctor(c *gin.Context) {
	id, ok := pathID(c, "doctor")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventDoctorDeleted, id, nil)
	c.Status(http.StatusNoContent)
}

func toDoctorResponse(d *models.Doctor) DoctorResponse {
	return DoctorResponse{
		ID:            d.ID,
		Name:          d.Name,
		LicenseNumber: d.LicenseNumber,
		Specialty:     d.Specialty,
		Phone:         d.Phone,
		Email:         d.Email,
		RegisteredAt:  formatDateTime(d.RegisteredAt),
	}
}

func toDoctorResponses(doctors []models.Doctor) []DoctorResponse {
	out := make([]DoctorResponse, 0, len(doctors))
	for i := range doctors {
		out = append(out, toDoctorResponse(&doctors[i]))
	}
	return out
}
