package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"clinic-backend/models"
	"clinic-backend/services"
)

type ReportHandler struct {
	svc *services.ReportService
}

func NewReportHandler(svc *services.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

type DashboardResponse struct {
	TotalPatients         int64                 `json:"total_patients"`
	TotalDoctors          int64                 `json:"total_doctors"`
	TotalAppointments     int64                 `json:"total_appointments"`
	AppointmentsThisMonth int64                 `json:"appointments_this_month"`
	AppointmentsToday     int64                 `json:"appointments_today"`
	ByStatus              []models.StatusCount  `json:"by_status"`
	Upcoming              []AppointmentResponse `json:"upcoming"`
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DashboardResponse{
		TotalPatients:         d.TotalPatients,
		TotalDoctors:          d.TotalDoctors,
		TotalAppointments:     d.TotalAppointments,
		AppointmentsThisMonth: d.AppointmentsThisMonth,
		AppointmentsToday:     d.AppointmentsToday,
		ByStatus:              d.ByStatus,
		Upcoming:              toAppointmentResponses(d.Upcoming),
	})
}

func (h *ReportHandler) AppointmentsByDoctor(c *gin.Context) {
	rows, err := h.svc.AppointmentsByDoctor(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) AppointmentsByPeriod(c *gin.Context) {
	rows, err := h.svc.AppointmentsByPeriod(c.Request.Context(), c.Query("start"), c.Query("end"), c.Query("granularity"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) MostSoughtSpecialties(c *gin.Context) {
	rows, err := h.svc.MostSoughtSpecialties(c.Request.Context(), c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) FrequentPatients(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}
	rows, err := h.svc.FrequentPatients(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
