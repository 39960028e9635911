package models

import (
	"time"

	"gorm.io/datatypes"
)

// MaxProjectTechnologies bounds the technology list of a project.
const MaxProjectTechnologies = 15

// ProjectStatus is the development stage of a project.
type ProjectStatus string

const (
	ProjectStatusIdea        ProjectStatus = "idea"
	ProjectStatusPlanning    ProjectStatus = "planning"
	ProjectStatusDevelopment ProjectStatus = "development"
	ProjectStatusTesting     ProjectStatus = "testing"
	ProjectStatusLaunched    ProjectStatus = "launched"
)

// Valid reports whether s is one of the known project stages.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusIdea, ProjectStatusPlanning, ProjectStatusDevelopment, ProjectStatusTesting, ProjectStatusLaunched:
		return true
	}
	return false
}

// Project represents a startup idea that other users can ask to join.
type Project struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	CreatorID    uint           `json:"creator_id" gorm:"index;not null"`
	Title        string         `json:"title" gorm:"type:varchar(200);not null"`
	Description  string         `json:"description" gorm:"type:text"`
	Technologies datatypes.JSON `json:"technologies"` // JSON array of technology names
	Category     string         `json:"category" gorm:"index;type:varchar(100)"`
	Status       ProjectStatus  `json:"status" gorm:"index;type:varchar(20);not null"`
	TeamMembers  []uint         `json:"team_members" gorm:"-"` // loaded from project_members, creator excluded
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// HasMember reports whether userID is on the project team.
func (p *Project) HasMember(userID uint) bool {
	for _, id := range p.TeamMembers {
		if id == userID {
			return true
		}
	}
	return false
}

// ProjectMember is one row of a project's team.
type ProjectMember struct {
	ProjectID uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index"`
	JoinedAt  time.Time `gorm:"not null"`
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	Status       ProjectStatus
	Category     string
	Technologies []string // listed projects must use every one of these
}
