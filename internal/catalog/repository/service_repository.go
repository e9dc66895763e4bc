package repository

import (
	"context"
	"errors"

	"inquiry-backend/internal/catalog/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceRepository interface {
	List(ctx context.Context) ([]domain.Service, error)
	FindByID(ctx context.Context, id uint) (*domain.Service, error)
	// Upsert inserts services or refreshes existing ones matched by name.
	Upsert(ctx context.Context, services []domain.Service) error
}

type gormServiceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &gormServiceRepository{db: db}
}

func (r *gormServiceRepository) List(ctx context.Context) ([]domain.Service, error) {
	var services []domain.Service
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *gormServiceRepository) FindByID(ctx context.Context, id uint) (*domain.Service, error) {
	var s domain.Service
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *gormServiceRepository) Upsert(ctx context.Context, services []domain.Service) error {
	if len(services) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "price", "image_url"}),
	}).Create(&services).Error
}
