package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinic-backend/models"
	"clinic-backend/services"
)

type PatientHandler struct {
	svc    *services.PatientService
	events *EventPublisher
}

func NewPatientHandler(svc *services.PatientService, events *EventPublisher) *PatientHandler {
	return &PatientHandler{svc: svc, events: events}
}

type PatientResponse struct {
	ID           uint    `json:"id"`
	Name         string  `json:"name"`
	BirthDate    string  `json:"birth_date"`
	TaxID        string  `json:"tax_id"`
	Address      *string `json:"address"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
	RegisteredAt string  `json:"registered_at"`
}

func (h *PatientHandler) ListPatients(c *gin.Context) {
	patients, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPatientResponses(patients))
}

func (h *PatientHandler) SearchPatients(c *gin.Context) {
	patients, err := h.svc.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPatientResponses(patients))
}

func (h *PatientHandler) GetPatient(c *gin.Context) {
	id, ok := pathID(c, "patient")
	if !ok {
		return
	}
	patient, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPatientResponse(patient))
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req services.CreatePatientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	patient, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventPatientCreated, patient.ID, models.PatientEntry(patient))
	c.JSON(http.StatusCreated, toPatientResponse(patient))
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id, ok := pathID(c, "patient")
	if !ok {
		return
	}
	var req services.PatientUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	patient, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventPatientUpdated, patient.ID, models.PatientEntry(patient))
	c.JSON(http.StatusOK, toPatientResponse(patient))
}

func (h *PatientHandler) DeletePatient(c *gin.Context) {
	id, ok := pathID(c, "patient")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	h.events.Publish(models.EventPatientDeleted, id, nil)
	c.Status(http.StatusNoContent)
}

func toPatientResponse(p *models.Patient) PatientResponse {
	return PatientResponse{
		ID:           p.ID,
		Name:         p.Name,
		BirthDate:    formatDate(p.BirthDate),
		TaxID:        p.TaxID,
		Address:      p.Address,
		Phone:        p.Phone,
		Email:        p.Email,
		RegisteredAt: formatDateTime(p.RegisteredAt),
	}
}

func toPatientResponses(patients []models.Patient) []PatientResponse {
	out := make([]PatientResponse, 0, len(patients))
	for i := range patients {
		out = append(out, toPatientResponse(&patients[i]))
	}
	return out
}
