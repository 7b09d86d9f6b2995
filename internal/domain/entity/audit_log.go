package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AuditLog represents a system audit trail entry
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Actor     string    `gorm:"type:varchar(100);not null" json:"actor"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"`
	Entity    string    `gorm:"type:varchar(50);not null" json:"entity"`
	EntityID  string    `gorm:"type:varchar(64);not null;index" json:"entity_id"`
	Metadata  JSON      `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// JSON type for GORM JSONB support
type JSON map[string]interface{}

// Value returns json value, implement driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan scan value into Jsonb, implements sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New(fmt.Sprint("Failed to unmarshal JSONB value:", value))
	}

	result := map[string]interface{}{}
	err := json.Unmarshal(bytes, &result)
	*j = JSON(result)
	return err
}

// Audit actions
const (
	AuditActionReservationCreate = "reservation.create"
	AuditActionReservationCancel = "reservation.cancel"
)

const AuditEntityReservation = "reservation"

// NewReservationAudit records a state change of res performed by actor
func NewReservationAudit(action, actor string, res *Reservation, at time.Time) *AuditLog {
	return &AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   AuditEntityReservation,
		EntityID: res.ID.String(),
		Metadata: JSON{
			"slot_date":         res.SlotDate,
			"slot_time":         res.SlotTime,
			"status":            string(res.Status),
			"booking_reference": res.BookingReference,
			"channel":           string(res.Channel),
		},
		CreatedAt: at,
	}
}
