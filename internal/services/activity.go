// Package services holds cross-cutting application services used by both the
// HTTP handlers and the CLI: the append-only activity log and the roster
// export writers.
package services

import (
	"encoding/json"

	"github.com/tnsecretariat/regadmin/internal/models"
	"gorm.io/gorm"
)

// Activity records administrative actions. Rows are append-only; nothing in
// the system updates or deletes them.
type Activity struct {
	db *gorm.DB
}

func NewActivity(db *gorm.DB) *Activity { return &Activity{db: db} }

// Record writes one audit row. Old and new are snapshotted as JSON; a nil
// snapshot stores an empty string.
func (a *Activity) Record(adminID *uint, action, entityType string, entityID uint, oldV, newV any, ip, userAgent string) error {
	entry := models.ActivityLog{
		AdminID:    adminID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if oldV != nil {
		b, err := json.Marshal(oldV)
		if err != nil {
			return err
		}
		entry.OldValues = string(b)
	}
	if newV != nil {
		b, err := json.Marshal(newV)
		if err != nil {
			return err
		}
		entry.NewValues = string(b)
	}
	return a.db.Create(&entry).Error
}
