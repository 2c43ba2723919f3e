package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Student struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolID    string                      `gorm:"type:varchar(8);not null;index" json:"schoolId"`
	FirstName   string                      `gorm:"type:varchar(128);not null" json:"firstName"`
	LastName    string                      `gorm:"type:varchar(128);not null" json:"lastName"`
	Grade       string                      `gorm:"type:varchar(32)" json:"grade,omitempty"`
	DateOfBirth *time.Time                  `gorm:"type:date" json:"dateOfBirth,omitempty"`
	ParentIDs   datatypes.JSONSlice[string] `gorm:"type:jsonb;column:parent_ids" json:"parentIds"`
	IsActive    bool                        `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (Student) TableName() string { return "students" }

func (s *Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HasParent reports whether parentID is already linked to the student.
func (s *Student) HasParent(parentID string) bool {
	for _, id := range s.ParentIDs {
		if id == parentID {
			return true
		}
	}
	return false
}

// AddParent links parentID with set semantics: adding an existing parent is a
// no-op and reports false.
func (s *Student) AddParent(parentID string) bool {
	if s.HasParent(parentID) {
		return false
	}
	s.ParentIDs = append(s.ParentIDs, parentID)
	return true
}

// RemoveParent unlinks parentID and reports whether it was present.
func (s *Student) RemoveParent(parentID string) bool {
	for i, id := range s.ParentIDs {
		if id == parentID {
			s.ParentIDs = append(s.ParentIDs[:i], s.ParentIDs[i+1:]...)
			return true
		}
	}
	return false
}
