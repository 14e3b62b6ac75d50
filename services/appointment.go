package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/monitoring"
)

type CreateAppointmentInput struct {
	PatientID uint    `json:"patient_id"`
	DoctorID  uint    `json:"doctor_id"`
	DateTime  string  `json:"date_time"`
	Type      string  `json:"type"`
	Notes     *string `json:"notes"`
	Status    string  `json:"status"`
}

// AppointmentUpdate carries only the fields to change. Notes is cleared by
// an explicit null; every other field is ignored when null or zero.
type AppointmentUpdate struct {
	PatientID models.Optional[uint]   `json:"patient_id"`
	DoctorID  models.Optional[uint]   `json:"doctor_id"`
	DateTime  models.Optional[string] `json:"date_time"`
	Type      models.Optional[string] `json:"type"`
	Notes     models.Optional[string] `json:"notes"`
	Status    models.Optional[string] `json:"status"`
}

// AppointmentQuery is the raw listing filter as it arrives from a request.
type AppointmentQuery struct {
	Start     string `form:"start"`
	End       string `form:"end"`
	DoctorID  uint   `form:"doctor_id"`
	PatientID uint   `form:"patient_id"`
	Status    string `form:"status"`
}

type AppointmentService struct {
	store models.Store
	log   *logger.Logger
}

func NewAppointmentService(store models.Store, log *logger.Logger) *AppointmentService {
	return &AppointmentService{store: store, log: log}
}

// List returns appointments matching every supplied filter, newest first.
func (s *AppointmentService) List(ctx context.Context, q AppointmentQuery) ([]models.AppointmentView, error) {
	start, end, err := parseRange(q.Start, q.End)
	if err != nil {
		return nil, err
	}
	filter := models.AppointmentFilter{
		Start:     start,
		End:       end,
		DoctorID:  q.DoctorID,
		PatientID: q.PatientID,
		Status:    strings.TrimSpace(q.Status),
	}

	var views []models.AppointmentView
	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		views, err = repo.ListAppointments(filter)
		return err
	})
	return views, err
}

func (s *AppointmentService) Get(ctx context.Context, id uint) (*models.AppointmentView, error) {
	var view *models.AppointmentView
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		view, err = repo.GetAppointmentView(id)
		return err
	})
	return view, err
}

func (s *AppointmentService) Create(ctx context.Context, in CreateAppointmentInput) (*models.AppointmentView, error) {
	var missing []string
	if in.PatientID == 0 {
		missing = append(missing, "patient_id")
	}
	if in.DoctorID == 0 {
		missing = append(missing, "doctor_id")
	}
	if blank(in.DateTime) {
		missing = append(missing, "date_time")
	}
	if blank(in.Type) {
		missing = append(missing, "type")
	}
	if len(missing) > 0 {
		return nil, models.Validationf("%s required", strings.Join(missing, ", "))
	}

	apptType := strings.TrimSpace(in.Type)
	if !models.ValidAppointmentType(apptType) {
		return nil, models.Validationf("type must be one of %s, %s, %s", models.TypeRegular, models.TypeFollowUp, models.TypeEmergency)
	}
	at, err := parseDateTime("date_time", in.DateTime)
	if err != nil {
		return nil, err
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = models.StatusScheduled
	}
	if err := checkLengths(limit("status", status, models.MaxStatusLen)); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		DateTime:  at,
		Type:      apptType,
		Notes:     in.Notes,
		Status:    status,
	}

	var view *models.AppointmentView
	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		if _, err := repo.GetPatient(appt.PatientID); err != nil {
			return err
		}
		if _, err := repo.GetDoctor(appt.DoctorID); err != nil {
			return err
		}
		if err := s.checkSlot(repo, appt); err != nil {
			return err
		}
		if err := repo.CreateAppointment(appt); err != nil {
			return err
		}
		var err error
		view, err = repo.GetAppointmentView(appt.ID)
		return err
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	monitoring.AppointmentsBooked.WithLabelValues(appt.Type).Inc()
	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"appointment_id": appt.ID,
		"doctor_id":      appt.DoctorID,
		"patient_id":     appt.PatientID,
	}).Info("appointment created")
	return view, nil
}

func (s *AppointmentService) Update(ctx context.Context, id uint, upd AppointmentUpdate) (*models.AppointmentView, error) {
	var at time.Time
	if supplied(upd.DateTime) {
		var err error
		if at, err = parseDateTime("date_time", upd.DateTime.Value); err != nil {
			return nil, err
		}
	}
	if supplied(upd.Type) && !models.ValidAppointmentType(strings.TrimSpace(upd.Type.Value)) {
		return nil, models.Validationf("type must be one of %s, %s, %s", models.TypeRegular, models.TypeFollowUp, models.TypeEmergency)
	}
	if err := checkLengths(limit("status", strings.TrimSpace(upd.Status.Value), models.MaxStatusLen)); err != nil {
		return nil, err
	}

	var view *models.AppointmentView
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		appt, err := repo.GetAppointment(id)
		if err != nil {
			return err
		}

		if upd.PatientID.Set && !upd.PatientID.Null && upd.PatientID.Value != 0 {
			if _, err := repo.GetPatient(upd.PatientID.Value); err != nil {
				return err
			}
			appt.PatientID = upd.PatientID.Value
		}
		slotChanged := false
		if upd.DoctorID.Set && !upd.DoctorID.Null && upd.DoctorID.Value != 0 {
			if _, err := repo.GetDoctor(upd.DoctorID.Value); err != nil {
				return err
			}
			appt.DoctorID = upd.DoctorID.Value
			slotChanged = true
		}
		if supplied(upd.DateTime) {
			appt.DateTime = at
			slotChanged = true
		}
		if supplied(upd.Type) {
			appt.Type = strings.TrimSpace(upd.Type.Value)
		}
		if upd.Notes.Set {
			appt.Notes = upd.Notes.Ptr()
		}
		if supplied(upd.Status) {
			status := strings.TrimSpace(upd.Status.Value)
			if status != appt.Status {
				slotChanged = true
			}
			appt.Status = status
		}

		if slotChanged {
			if err := s.checkSlot(repo, appt); err != nil {
				return err
			}
		}
		if err := repo.SaveAppointment(appt); err != nil {
			return err
		}
		view, err = repo.GetAppointmentView(id)
		return err
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.log.WithContext(ctx).WithField("appointment_id", id).Info("appointment updated")
	return view, nil
}

// PatchStatus sets any non-blank status that fits the column. There is no
// transition check, but moving a cancelled appointment back onto a taken
// slot is still a conflict.
func (s *AppointmentService) PatchStatus(ctx context.Context, id uint, status string) (*models.AppointmentView, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, models.Validationf("status is required")
	}
	if err := checkLengths(limit("status", status, models.MaxStatusLen)); err != nil {
		return nil, err
	}

	var view *models.AppointmentView
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		appt, err := repo.GetAppointment(id)
		if err != nil {
			return err
		}
		if appt.Status != status {
			appt.Status = status
			if err := s.checkSlot(repo, appt); err != nil {
				return err
			}
		}
		if err := repo.SaveAppointment(appt); err != nil {
			return err
		}
		view, err = repo.GetAppointmentView(id)
		return err
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.log.WithContext(ctx).WithFields(logrus.Fields{"appointment_id": id, "status": status}).Info("appointment status changed")
	return view, nil
}

func (s *AppointmentService) Delete(ctx context.Context, id uint) error {
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		if _, err := repo.GetAppointment(id); err != nil {
			return err
		}
		return repo.DeleteAppointment(id)
	})
	if err != nil {
		return err
	}
	s.log.WithContext(ctx).WithField("appointment_id", id).Info("appointment deleted")
	return nil
}

// checkSlot enforces the double-booking rule for appt's effective doctor and
// date-time. Cancelled appointments never occupy a slot.
func (s *AppointmentService) checkSlot(repo models.Repository, appt *models.Appointment) error {
	if appt.Status == models.StatusCancelled {
		return nil
	}
	taken, err := repo.SlotTaken(appt.DoctorID, appt.DateTime, appt.ID)
	if err != nil {
		return err
	}
	if taken {
		return models.Conflictf("doctor %d already has an appointment at %s",
			appt.DoctorID, appt.DateTime.Format(DateTimeLayout))
	}
	return nil
}

func (s *AppointmentService) countConflict(err error) {
	if models.KindOf(err) == models.KindConflict {
		monitoring.BookingConflicts.Inc()
	}
}
