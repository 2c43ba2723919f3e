package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// schoolIDPattern matches the public school identifier: three uppercase
// letters followed by three or four digits, e.g. GRN1234.
var schoolIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3,4}$`)

// School is the tenant root. Its email/password pair is the school-admin
// portal credential; invitations and logins are only permitted against
// schools that are both active and verified.
type School struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolID   string         `gorm:"type:varchar(8);uniqueIndex;not null" json:"schoolId"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	Email      string         `gorm:"type:varchar(255);not null" json:"email"`
	Password   string         `gorm:"type:varchar(255);not null" json:"-"`
	Address    string         `gorm:"type:varchar(512)" json:"address,omitempty"`
	Phone      string         `gorm:"type:varchar(32)" json:"phone,omitempty"`
	IsVerified bool           `gorm:"not null;default:false" json:"isVerified"`
	IsActive   bool           `gorm:"not null;default:true" json:"isActive"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (School) TableName() string { return "schools" }

// IsOperational reports whether the school may accept logins and invitations.
func (s *School) IsOperational() bool {
	return s.IsActive && s.IsVerified
}

// ValidSchoolID reports whether id is a well-formed public school identifier.
func ValidSchoolID(id string) bool {
	return schoolIDPattern.MatchString(id)
}
