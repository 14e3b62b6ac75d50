package services

import (
	"context"
	"strings"
	"time"

	"clinic-backend/logger"
	"clinic-backend/models"
)

const (
	upcomingLimit           = 10
	upcomingWindow          = 7 * 24 * time.Hour
	defaultFrequentPatients = 10
)

type Dashboard struct {
	TotalPatients         int64                    `json:"total_patients"`
	TotalDoctors          int64                    `json:"total_doctors"`
	TotalAppointments     int64                    `json:"total_appointments"`
	AppointmentsThisMonth int64                    `json:"appointments_this_month"`
	AppointmentsToday     int64                    `json:"appointments_today"`
	ByStatus              []models.StatusCount     `json:"by_status"`
	Upcoming              []models.AppointmentView `json:"upcoming"`
}

// ReportService answers read-only aggregate questions. All "now" based
// figures are computed from clock.
type ReportService struct {
	store models.Store
	clock func() time.Time
	log   *logger.Logger
}

// NewReportService builds the service. A nil clock reads wall time in UTC.
func NewReportService(store models.Store, clock func() time.Time, log *logger.Logger) *ReportService {
	if clock == nil {
		clock = WallClock(time.UTC)
	}
	return &ReportService{store: store, clock: clock, log: log}
}

func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.clock()
	today := startOfDay(now)
	endOfToday := today.Add(24*time.Hour - time.Microsecond)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	horizon := now.Add(upcomingWindow)

	d := &Dashboard{}
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		if d.TotalPatients, err = repo.CountPatients(); err != nil {
			return err
		}
		if d.TotalDoctors, err = repo.CountDoctors(); err != nil {
			return err
		}
		if d.TotalAppointments, err = repo.CountAppointmentsBetween(nil, nil); err != nil {
			return err
		}
		if d.AppointmentsThisMonth, err = repo.CountAppointmentsBetween(&monthStart, nil); err != nil {
			return err
		}
		if d.AppointmentsToday, err = repo.CountAppointmentsBetween(&today, &endOfToday); err != nil {
			return err
		}
		if d.ByStatus, err = repo.AppointmentsByStatus(); err != nil {
			return err
		}
		d.Upcoming, err = repo.UpcomingAppointments(now, horizon, upcomingLimit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if d.ByStatus == nil {
		d.ByStatus = []models.StatusCount{}
	}
	if d.Upcoming == nil {
		d.Upcoming = []models.AppointmentView{}
	}
	return d, nil
}

func (s *ReportService) AppointmentsByDoctor(ctx context.Context, start, end string) ([]models.DoctorCount, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	rows := []models.DoctorCount{}
	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		res, err := repo.AppointmentsByDoctor(from, to)
		if res != nil {
			rows = res
		}
		return err
	})
	return rows, err
}

// AppointmentsByPeriod buckets appointments in [start, end] by day, month or
// year. Both bounds are required; granularity defaults to day.
func (s *ReportService) AppointmentsByPeriod(ctx context.Context, start, end, granularity string) ([]models.PeriodCount, error) {
	if blank(start) || blank(end) {
		return nil, models.Validationf("start and end are required")
	}
	granularity = strings.ToLower(strings.TrimSpace(granularity))
	switch granularity {
	case "":
		granularity = models.GranularityDay
	case models.GranularityDay, models.GranularityMonth, models.GranularityYear:
	default:
		return nil, models.Validationf("granularity must be one of day, month, year")
	}
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}

	rows := []models.PeriodCount{}
	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		res, err := repo.AppointmentsByPeriod(*from, *to, granularity)
		if res != nil {
			rows = res
		}
		return err
	})
	return rows, err
}

func (s *ReportService) MostSoughtSpecialties(ctx context.Context, start, end string) ([]models.SpecialtyCount, error) {
	from, to, err := parseRange(start, end)
	if err != nil {
		return nil, err
	}
	rows := []models.SpecialtyCount{}
	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		res, err := repo.AppointmentsBySpecialty(from, to)
		if res != nil {
			rows = res
		}
		return err
	})
	return rows, err
}

// FrequentPatients returns the patients with the most appointments. A
// non-positive limit means the default of 10.
func (s *ReportService) FrequentPatients(ctx context.Context, limit int) ([]models.PatientCount, error) {
	if limit <= 0 {
		limit = defaultFrequentPatients
	}
	rows := []models.PatientCount{}
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		res, err := repo.FrequentPatients(limit)
		if res != nil {
			rows = res
		}
		return err
	})
	return rows, err
}
