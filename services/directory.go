package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/models"
	"clinic-backend/utils"
)

const directorySearchSize = 25

// DirectoryService keeps the full-text directory of patients and doctors in
// Elasticsearch. The relational store stays the source of truth.
type DirectoryService struct {
	store     models.Store
	index     utils.ElasticsearchClient
	indexName string
	log       *logger.Logger
}

func NewDirectoryService(store models.Store, index utils.ElasticsearchClient, indexName string, log *logger.Logger) *DirectoryService {
	return &DirectoryService{store: store, index: index, indexName: indexName, log: log}
}

func (s *DirectoryService) enabled() error {
	if s.index == nil {
		return models.StoreError("search index is not configured", nil)
	}
	return nil
}

// Search runs a prefix-aware match over names, tax ids, license numbers and
// specialties. A blank term matches nothing.
func (s *DirectoryService) Search(ctx context.Context, term string) ([]models.DirectoryEntry, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.DirectoryEntry{}, nil
	}
	if err := s.enabled(); err != nil {
		return nil, err
	}

	query := map[string]interface{}{
		"size": directorySearchSize,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"type":   "phrase_prefix",
				"fields": []string{"name", "tax_id", "license_number", "specialty"},
			},
		},
	}
	hits, err := s.index.SearchDocuments(ctx, s.indexName, query)
	if err != nil {
		return nil, models.StoreError("directory search failed", err)
	}

	entries := make([]models.DirectoryEntry, 0, len(hits))
	for _, hit := range hits {
		raw, err := json.Marshal(hit)
		if err != nil {
			continue
		}
		var entry models.DirectoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			s.log.WithContext(ctx).WithError(err).Warn("skipping malformed directory document")
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *DirectoryService) IndexEntry(ctx context.Context, entry models.DirectoryEntry) error {
	if err := s.enabled(); err != nil {
		return err
	}
	if err := s.index.IndexDocument(ctx, s.indexName, entry.DocumentID(), entry); err != nil {
		return models.StoreError(fmt.Sprintf("failed to index %s", entry.DocumentID()), err)
	}
	return nil
}

func (s *DirectoryService) RemoveEntry(ctx context.Context, kind string, id uint) error {
	if err := s.enabled(); err != nil {
		return err
	}
	docID := models.DirectoryDocumentID(kind, id)
	if err := s.index.DeleteDocument(ctx, s.indexName, docID); err != nil {
		return models.StoreError(fmt.Sprintf("failed to remove %s", docID), err)
	}
	return nil
}

// Reindex writes every patient and doctor to the index and returns how many
// documents were written.
func (s *DirectoryService) Reindex(ctx context.Context) (int, error) {
	if err := s.enabled(); err != nil {
		return 0, err
	}

	var entries []models.DirectoryEntry
	err := s.store.Transaction(ctx, func(repo models.Repository) error {
		patients, err := repo.ListPatients()
		if err != nil {
			return err
		}
		doctors, err := repo.ListDoctors()
		if err != nil {
			return err
		}
		entries = make([]models.DirectoryEntry, 0, len(patients)+len(doctors))
		for i := range patients {
			entries = append(entries, models.PatientEntry(&patients[i]))
		}
		for i := range doctors {
			entries = append(entries, models.DoctorEntry(&doctors[i]))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, entry := range entries {
		if err := s.IndexEntry(ctx, entry); err != nil {
			return i, err
		}
	}

	s.log.WithContext(ctx).WithFields(logrus.Fields{
		"index":     s.indexName,
		"documents": len(entries),
	}).Info("directory reindexed")
	return len(entries), nil
}
