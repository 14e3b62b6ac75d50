package services

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/utils"
)

type CreatePatientInput struct {
	Name      string  `json:"name"`
	TaxID     string  `json:"tax_id"`
	BirthDate string  `json:"birth_date"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

// PatientUpdate carries only the fields to change. Name, tax id and birth
// date are ignored when null or empty; address, phone and email are cleared
// by an explicit null.
type PatientUpdate struct {
	Name      models.Optional[string] `json:"name"`
	TaxID     models.Optional[string] `json:"tax_id"`
	BirthDate models.Optional[string] `json:"birth_date"`
	Address   models.Optional[string] `json:"address"`
	Phone     models.Optional[string] `json:"phone"`
	Email     models.Optional[string] `json:"email"`
}

type PatientService struct {
	store models.Store
	cache entityCache[models.Patient]
	log   *logger.Logger
}

// NewPatientService builds the service. cache may be nil.
func NewPatientService(store models.Store, cache utils.RedisClient, cacheTTL time.Duration, log *logger.Logger) *PatientService {
	return &PatientService{
		store: store,
		cache: entityCache[models.Patient]{client: cache, ttl: cacheTTL, prefix: "patient", log: log},
		log:   log,
	}
}

func (s *PatientService) List(ctx context.Context) ([]models.Patient, error) {
	var patients []models.Patient
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		patients, err = repo.ListPatients()
		return err
	})
	return patients, err
}

func (s *PatientService) Get(ctx context.Context, id uint) (*models.Patient, error) {
	if p, ok := s.cache.get(ctx, id); ok {
		return p, nil
	}
	var patient *models.Patient
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		patient, err = repo.GetPatient(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.set(ctx, id, patient)
	return patient, nil
}

func (s *PatientService) Create(ctx context.Context, in CreatePatientInput) (*models.Patient, error) {
	if blank(in.Name) || blank(in.TaxID) || blank(in.BirthDate) {
		return nil, models.Validationf("name, tax_id and birth_date are required")
	}
	birthDate, err := parseDate("birth_date", in.BirthDate)
	if err != nil {
		return nil, err
	}
	if err := checkLengths(
		limit("name", strings.TrimSpace(in.Name), models.MaxNameLen),
		limit("tax_id", strings.TrimSpace(in.TaxID), models.MaxTaxIDLen),
		limitPtr("phone", in.Phone, models.MaxPhoneLen),
		limitPtr("email", in.Email, models.MaxEmailLen),
	); err != nil {
		return nil, err
	}

	patient := &models.Patient{
		Name:      strings.TrimSpace(in.Name),
		TaxID:     strings.TrimSpace(in.TaxID),
		BirthDate: birthDate,
		Address:   in.Address,
		Phone:     in.Phone,
		Email:     in.Email,
	}

	err = s.store.Transaction(ctx, func(repo models.Repository) error {
		taken, err := repo.PatientTaxIDTaken(patient.TaxID, 0)
		if err != nil {
			return err
		}
		if taken {
			return models.Conflictf("tax_id %s is already registered", patient.TaxID)
		}
		return repo.CreatePatient(patient)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).WithField("patient_id", patient.ID).Info("patient created")
	return patient, nil
}

func (s *PatientService) Update(ctx context.Context, id uint, upd PatientUpdate) (*models.Patient, error) {
	var birthDate time.Time
	if supplied(upd.BirthDate) {
		var err error
		if birthDate, err = parseDate("birth_date", upd.BirthDate.Value); err != nil {
			return nil, err
		}
	}
	if err := checkLengths(
		limit("name", strings.TrimSpace(upd.Name.Value), models.MaxNameLen),
		limit("tax_id", strings.TrimSpace(upd.TaxID.Value), models.MaxTaxIDLen),
		limit("phone", upd.Phone.Value, models.MaxPhoneLen),
		limit("email", upd.Email.Value, models.MaxEmailLen),
	); err != nil {
		return nil, err
	}

	var patient *models.Patient
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		patient, err = repo.GetPatient(id)
		if err != nil {
			return err
		}

		if supplied(upd.TaxID) {
			taxID := strings.TrimSpace(upd.TaxID.Value)
			if taxID != patient.TaxID {
				taken, err := repo.PatientTaxIDTaken(taxID, id)
				if err != nil {
					return err
				}
				if taken {
					return models.Conflictf("tax_id %s is already registered", taxID)
				}
				patient.TaxID = taxID
			}
		}
		if supplied(upd.Name) {
			patient.Name = strings.TrimSpace(upd.Name.Value)
		}
		if supplied(upd.BirthDate) {
			patient.BirthDate = birthDate
		}
		if upd.Address.Set {
			patient.Address = upd.Address.Ptr()
		}
		if upd.Phone.Set {
			patient.Phone = upd.Phone.Ptr()
		}
		if upd.Email.Set {
			patient.Email = upd.Email.Ptr()
		}

		return repo.SavePatient(patient)
	})
	if err != nil {
		return nil, err
	}

	s.cache.invalidate(ctx, id)
	s.log.WithContext(ctx).WithField("patient_id", id).Info("patient updated")
	return patient, nil
}

// Delete refuses to remove a patient that still has appointments.
func (s *PatientService) Delete(ctx context.Context, id uint) error {
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		if _, err := repo.GetPatient(id); err != nil {
			return err
		}
		n, err := repo.CountAppointments(id, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return models.Conflictf("patient %d has %d appointment(s); delete them first", id, n)
		}
		return repo.DeletePatient(id)
	})
	if err != nil {
		return err
	}

	s.cache.invalidate(ctx, id)
	s.log.WithContext(ctx).WithFields(logrus.Fields{"patient_id": id}).Info("patient deleted")
	return nil
}

// Search matches term case-insensitively against name and tax id. A blank
// term matches nothing.
func (s *PatientService) Search(ctx context.Context, term string) ([]models.Patient, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.Patient{}, nil
	}
	var patients []models.Patient
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		var err error
		patients, err = repo.SearchPatients(term)
		return err
	})
	return patients, err
}
