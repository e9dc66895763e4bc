package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"inquiry-backend/internal/catalog/domain"
	"inquiry-backend/internal/catalog/repository"

	"gopkg.in/yaml.v3"
)

type CatalogUsecase interface {
	ListServices(ctx context.Context) ([]domain.Service, error)
	GetService(ctx context.Context, id uint) (*domain.Service, error)
	SeedFromFile(ctx context.Context, path string) (int, error)
}

// seedFile is the on-disk layout of SERVICES_SEED_FILE.
type seedFile struct {
	Services []domain.Service `yaml:"services"`
}

type catalogUsecase struct {
	repo repository.ServiceRepository
}

func NewCatalogUsecase(repo repository.ServiceRepository) CatalogUsecase {
	return &catalogUsecase{repo: repo}
}

func (u *catalogUsecase) ListServices(ctx context.Context) ([]domain.Service, error) {
	services, err := u.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if services == nil {
		services = []domain.Service{}
	}
	return services, nil
}

// GetService returns nil, nil for an unknown id.
func (u *catalogUsecase) GetService(ctx context.Context, id uint) (*domain.Service, error) {
	return u.repo.FindByID(ctx, id)
}

func (u *catalogUsecase) SeedFromFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	services, err := ParseSeed(f)
	if err != nil {
		return 0, err
	}
	if err := u.repo.Upsert(ctx, services); err != nil {
		return 0, fmt.Errorf("upsert services: %w", err)
	}
	return len(services), nil
}

// ParseSeed decodes and validates a catalog seed document.
func ParseSeed(r io.Reader) ([]domain.Service, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	seen := make(map[string]bool, len(doc.Services))
	for i := range doc.Services {
		s := &doc.Services[i]
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, fmt.Errorf("service #%d: name is required", i+1)
		}
		if s.Price <= 0 {
			return nil, fmt.Errorf("service %q: price must be positive", s.Name)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("service %q: duplicate name", s.Name)
		}
		seen[s.Name] = true
	}
	return doc.Services, nil
}
