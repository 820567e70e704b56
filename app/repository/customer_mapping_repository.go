package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/subdeckhq/subdeck/app/models"
)

type gormCustomerMappingRepository struct {
	db *gorm.DB
}

// NewCustomerMappingRepository creates a mapping repository backed by GORM.
func NewCustomerMappingRepository(db *gorm.DB) CustomerMappingRepository {
	return &gormCustomerMappingRepository{db: db}
}

func (r *gormCustomerMappingRepository) GetByUserID(userID string) (*models.CustomerMapping, error) {
	var mapping models.CustomerMapping
	if err := r.db.Where("user_id = ?", userID).First(&mapping).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *gormCustomerMappingRepository) CreateIfNotExists(mapping *models.CustomerMapping) (bool, *models.CustomerMapping, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(mapping)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.CustomerMapping
	if err := r.db.Where("user_id = ?", mapping.UserID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}
