package service

import (
	"access_service/internal/models"
	"access_service/internal/repository"
	"context"
	"log"
	"slices"
)

type AutoApproveService struct {
	autoApproveRepo AutoApproveStore
}

func NewAutoApproveService() *AutoApproveService {
	return &AutoApproveService{
		autoApproveRepo: repository.Repositories_instance.AutoApproveRepository,
	}
}

func NewAutoApproveServiceWithStore(store AutoApproveStore) *AutoApproveService {
	return &AutoApproveService{autoApproveRepo: store}
}

// IsAutoApproveEnabled reports whether requests for the role skip manual
// review. Lookup failures are logged and treated as disabled; the request
// then falls through to manual review.
func (s *AutoApproveService) IsAutoApproveEnabled(ctx context.Context, role string) bool {
	config, err := s.autoApproveRepo.Find(ctx)
	if err != nil {
		log.Printf("Warning: failed to load auto approve config: %v", err)
		return false
	}
	if config == nil || !config.Enabled {
		return false
	}
	return slices.Contains(config.Roles, role)
}

// SeedDefaultConfig makes sure an auto-approve document exists; a missing
// document means auto-approval is off.
func (s *AutoApproveService) SeedDefaultConfig(ctx context.Context) error {
	repo, ok := s.autoApproveRepo.(*repository.AutoApproveRepository)
	if !ok {
		return nil
	}
	config, err := s.autoApproveRepo.Find(ctx)
	if err != nil {
		return err
	}
	if config != nil {
		return nil
	}
	return repo.Save(ctx, &models.AutoApproveConfig{Enabled: false, Roles: []string{}})
}
