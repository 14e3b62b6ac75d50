package services

import (
	"context"
	"strings"
	"time"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/utils"
)

type CreateDoctorInput struct {
	Name          string  `json:"name"`
	LicenseNumber string  `json:"license_number"`
	Specialty     string  `json:"specialty"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
}

type DoctorUpdate struct {
	Name          models.Optional[string] `json:"name"`
	LicenseNumber models.Optional[string] `json:"license_number"`
	Specialty     models.Optional[string] `json:"specialty"`
	Phone         models.Optional[string] `json:"phone"`
	Email         models.Optional[string] `json:"email"`
}

type DoctorService struct {
	store models.Store
	cache entityCache[models.Doctor]
	log   *logger.Logger
}

func NewDoctorService(store models.Store, cache utils.RedisClient, cacheTTL time.Duration, log *logger.Logger) *DoctorService {
	return &DoctorService{
		store: store,
		cache: entityCache[models.Doctor]{client: cache, ttl: cacheTTL, prefix: "doctor", log: log},
		log:   log,
	}
}

func (s *DoctorService) List(ctx context.Context) ([]models.Doctor, error) {
	var doctors []models.Doctor
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		doctors, err = repo.ListDoctors()
		return err
	})
	return doctors, err
}

func (s *DoctorService) Get(ctx context.Context, id uint) (*models.Doctor, error) {
	if d, ok := s.cache.get(ctx, id); ok {
		return d, nil
	}
	var doctor *models.Doctor
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		doctor, err = repo.GetDoctor(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, id, doctor)
	return doctor, nil
}

func (s *DoctorService) Create(ctx context.Context, in CreateDoctorInput) (*models.Doctor, error) {
	if blank(in.Name) || blank(in.LicenseNumber) || blank(in.Specialty) {
		return nil, models.Validationf("name, license_number and specialty are required")
	}
	if err := checkLengths(
		limit("name", strings.TrimSpace(in.Name), models.MaxNameLen),
		limit("license_number", strings.TrimSpace(in.LicenseNumber), models.MaxLicenseLen),
		limit("specialty", strings.TrimSpace(in.Specialty), models.MaxSpecialtyLen),
		limitPtr("phone", in.Phone, models.MaxPhoneLen),
		limitPtr("email", in.Email, models.MaxEmailLen),
	); err != nil {
		return nil, err
	}

	doctor := &models.Doctor{
		Name:          strings.TrimSpace(in.Name),
		LicenseNumber: strings.TrimSpace(in.LicenseNumber),
		Specialty:     strings.TrimSpace(in.Specialty),
		Phone:         in.Phone,
		Email:         in.Email,
	}

	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		taken, err := repo.DoctorLicenseTaken(doctor.LicenseNumber, 0)
		if err != nil {
			return err
		}
		if taken {
			return models.Conflictf("license_number %s is already registered", doctor.LicenseNumber)
		}
		return repo.CreateDoctor(doctor)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).WithField("doctor_id", doctor.ID).Info("doctor created")
	return doctor, nil
}

func (s *DoctorService) Update(ctx context.Context, id uint, upd DoctorUpdate) (*models.Doctor, error) {
	if err := checkLengths(
		limit("name", strings.TrimSpace(upd.Name.Value), models.MaxNameLen),
		limit("license_number", strings.TrimSpace(upd.LicenseNumber.Value), models.MaxLicenseLen),
		limit("specialty", strings.TrimSpace(upd.Specialty.Value), models.MaxSpecialtyLen),
		limit("phone", upd.Phone.Value, models.MaxPhoneLen),
		limit("email", upd.Email.Value, models.MaxEmailLen),
	); err != nil {
		return nil, err
	}

	var doctor *models.Doctor
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		doctor, err = repo.GetDoctor(id)
		if err != nil {
			return err
		}

		if supplied(upd.LicenseNumber) {
			license := strings.TrimSpace(upd.LicenseNumber.Value)
			if license != doctor.LicenseNumber {
				taken, err := repo.DoctorLicenseTaken(license, id)
				if err != nil {
					return err
				}
				if taken {
					return models.Conflictf("license_number %s is already registered", license)
				}
				doctor.LicenseNumber = license
			}
		}
		if supplied(upd.Name) {
			doctor.Name = strings.TrimSpace(upd.Name.Value)
		}
		if supplied(upd.Specialty) {
			doctor.Specialty = strings.TrimSpace(upd.Specialty.Value)
		}
		if upd.Phone.Set {
			doctor.Phone = upd.Phone.Ptr()
		}
		if upd.Email.Set {
			doctor.Email = upd.Email.Ptr()
		}

		return repo.SaveDoctor(doctor)
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, id)
	s.log.WithContext(ctx).WithField("doctor_id", id).Info("doctor updated")
	return doctor, nil
}

// Delete refuses to remove a doctor that still has appointments.
func (s *DoctorService) Delete(ctx context.Context, id uint) error {
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		if _, err := repo.GetDoctor(id); err != nil {
			return err
		}
		n, err := repo.CountAppointments(0, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return models.Conflictf("doctor %d has %d appointment(s); delete them first", id, n)
		}
		return repo.DeleteDoctor(id)
	})
	if err != nil {
		return err
	}

	s.cache.invalidate(ctx, id)
	s.log.WithContext(ctx).WithField("doctor_id", id).Info("doctor deleted")
	return nil
}

func (s *DoctorService) Search(ctx context.Context, term string) ([]models.Doctor, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Doctor{}, nil
	}
	var doctors []models.Doctor
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		doctors, err = repo.SearchDoctors(term)
		return err
	})
	return doctors, err
}

// Specialties lists the distinct specialties currently in use, sorted.
func (s *DoctorService) Specialties(ctx context.Context) ([]string, error) {
	var specialties []string
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		specialties, err = repo.ListSpecialties()
		return err
	})
	return specialties, err
}
