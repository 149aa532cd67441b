package services

import (
	"context"

	"github.com/mindspero/mindspero/internal/domain/user"
	"github.com/mindspero/mindspero/internal/pkg/logger"
)

// AccountService closes accounts. Rows cascade in the database; stored
// uploads and artifacts are removed here once the rows are gone.
type AccountService struct {
	users  user.Service
	docs   *DocumentService
	logger *logger.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users user.Service, docs *DocumentService, log *logger.Logger) *AccountService {
	return &AccountService{users: users, docs: docs, logger: log}
}

// Delete removes a user with their subscription, payments, documents and blobs
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	docs, err := s.docs.ListByOwner(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	for _, doc := range docs {
		s.docs.deleteBlobs(ctx, doc.StorageKey, doc.SummaryArtifactID, doc.AudioArtifactID)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":   userID,
		"documents": len(docs),
	}).Info("Account closed")
	return nil
}
