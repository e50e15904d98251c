package models

import "time"

// CartSnapshot stores the serialized cart of one session.
type CartSnapshot struct {
	SessionID string    `gorm:"column:session_id;primaryKey"`
	Version   int64     `gorm:"column:version;not null;default:0"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}
