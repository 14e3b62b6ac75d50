package handlers

import "github.com/gin-gonic/gin"

type Handlers struct {
	Patients     *PatientHandler
	Doctors      *DoctorHandler
	Appointments *AppointmentHandler
	Reports      *ReportHandler
	Search       *SearchHandler
}

// RegisterRoutes mounts the clinic API on api, normally the /api/v1 group.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	patients := api.Group("/patients")
	{
		patients.GET("", h.Patients.ListPatients)
		patients.GET("/search", h.Patients.SearchPatients)
		patients.GET("/:id", h.Patients.GetPatient)
		patients.POST("", h.Patients.CreatePatient)
		patients.PUT("/:id", h.Patients.UpdatePatient)
		patients.DELETE("/:id", h.Patients.DeletePatient)
	}

	doctors := api.Group("/doctors")
	{
		doctors.GET("", h.Doctors.ListDoctors)
		doctors.GET("/search", h.Doctors.SearchDoctors)
		doctors.GET("/specialties", h.Doctors.ListSpecialties)
		doctors.GET("/:id", h.Doctors.GetDoctor)
		doctors.POST("", h.Doctors.CreateDoctor)
		doctors.PUT("/:id", h.Doctors.UpdateDoctor)
		doctors.DELETE("/:id", h.Doctors.DeleteDoctor)
	}

	appointments := api.Group("/appointments")
	{
		appointments.GET("", h.Appointments.ListAppointments)
		appointments.GET("/:id", h.Appointments.GetAppointment)
		appointments.POST("", h.Appointments.CreateAppointment)
		appointments.PUT("/:id", h.Appointments.UpdateAppointment)
		appointments.PATCH("/:id/status", h.Appointments.PatchStatus)
		appointments.DELETE("/:id", h.Appointments.DeleteAppointment)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/dashboard", h.Reports.Dashboard)
		reports.GET("/appointments-by-doctor", h.Reports.AppointmentsByDoctor)
		reports.GET("/appointments-by-period", h.Reports.AppointmentsByPeriod)
		reports.GET("/specialties", h.Reports.MostSoughtSpecialties)
		reports.GET("/frequent-patients", h.Reports.FrequentPatients)
	}

	if h.Search != nil {
		api.GET("/search", h.Search.Search)
	}
}
