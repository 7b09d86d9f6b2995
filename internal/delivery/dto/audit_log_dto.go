package dto

import (
	"hospital-booking/internal/domain/entity"
	"time"
)

// Response DTOs

type AuditLogResponse struct {
	ID        int64       `json:"id"`
	Actor     string      `json:"actor"`
	Action    string      `json:"action"`
	Entity    string      `json:"entity"`
	EntityID  string      `json:"entity_id"`
	Metadata  entity.JSON `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
}

type AuditLogListResponse struct {
	Logs  []AuditLogResponse `json:"logs"`
	Total int                `json:"total"`
}
