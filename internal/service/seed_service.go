package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/ignatzorin/citesignal-backend/internal/domain/repository"
	"github.com/ignatzorin/citesignal-backend/internal/logger"
)

// seedNeighborhood квартал Большого Туниса с почтовым индексом.
type seedNeighborhood struct {
	Name       string
	PostalCode string
}

var defaultNeighborhoods = func() []seedNeighborhood {
	names := []string{
		"Bab Souika", "Bab El Khadra", "Bab El Bhar", "Bab Jedid",
		"Le Bardo", "Carthage", "Sidi Bou Said", "La Marsa",
		"El Menzah", "Mutuelleville", "Lafayette", "Belvédère",
		"Centre-ville", "Kasbah", "Medina", "Ariana",
		"Ezzouhour", "El Omrane", "El Omrane Supérieur", "Cité El Khadra",
	}
	out := make([]seedNeighborhood, 0, len(names))
	for _, name := range names {
		out = append(out, seedNeighborhood{Name: name, PostalCode: postalCodeFor(name)})
	}
	return out
}()

var defaultDepartments = []string{
	"Voirie et Infrastructure",
	"Propreté Urbaine",
	"Éclairage Public",
	"Eau et Assainissement",
	"Sécurité et Circulation",
}

// postalCodeFor пригородные кварталы имеют свои индексы, остальное центр Туниса.
func postalCodeFor(name string) string {
	switch {
	case name == "Ariana", name == "La Marsa", name == "Carthage", name == "Sidi Bou Said":
		return "2030"
	case strings.HasPrefix(name, "Le Bardo"):
		return "2000"
	default:
		return "1000"
	}
}

// SeedService заполняет справочники при старте. Повторный запуск ничего не дублирует.
type SeedService struct {
	references repository.ReferenceRepository
}

// NewSeedService создаёт сервис начальных данных.
func NewSeedService(references repository.ReferenceRepository) *SeedService {
	return &SeedService{references: references}
}

// SeedReferenceData создаёт кварталы и департаменты, которых ещё нет.
func (s *SeedService) SeedReferenceData(ctx context.Context) error {
	for _, n := range defaultNeighborhoods {
		if err := s.references.EnsureNeighborhood(ctx, n.Name, n.PostalCode); err != nil {
			return fmt.Errorf("seed service: квартал %s: %w", n.Name, err)
		}
	}
	for _, name := range defaultDepartments {
		if err := s.references.EnsureDepartment(ctx, name, "Département "+name); err != nil {
			return fmt.Errorf("seed service: департамент %s: %w", name, err)
		}
	}

	logger.L().WithField("neighborhoods", len(defaultNeighborhoods)).
		WithField("departments", len(defaultDepartments)).
		Info("seed: справочники проверены")
	return nil
}
