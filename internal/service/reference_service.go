package service

import (
	"context"

	"github.com/ignatzorin/citesignal-backend/internal/domain/entity"
	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
)

// ReferenceService справочники кварталов и департаментов.
type ReferenceService struct {
	repo repository.ReferenceRepository
}

func NewReferenceService(repo repository.ReferenceRepository) *ReferenceService {
	return &ReferenceService{repo: repo}
}

func (s *ReferenceService) Neighborhoods(ctx context.Context) ([]entity.Neighborhood, error) {
	items, err := s.repo.ListNeighborhoods(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.Neighborhood{}
	}
	return items, nil
}

func (s *ReferenceService) Departments(ctx context.Context) ([]entity.Department, error) {
	items, err := s.repo.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []entity.Department{}
	}
	return items, nil
}
