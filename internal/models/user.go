package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxUserSkills bounds the number of skills a profile may list.
const MaxUserSkills = 20

// User represents a member of the platform.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;type:varchar(100);not null"`
	Email     string         `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string         `json:"-" gorm:"type:varchar(255);not null"`
	Bio       string         `json:"bio" gorm:"type:text"`
	Skills    datatypes.JSON `json:"skills"` // JSON array of skill names
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
