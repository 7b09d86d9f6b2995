package repository

import (
	"hospital-booking/internal/domain/entity"

	"gorm.io/gorm"
)

type AuditLogRepository interface {
	Create(db *gorm.DB, log *entity.AuditLog) error
	FindByEntity(db *gorm.DB, entityName, entityID string) ([]entity.AuditLog, error)
}
