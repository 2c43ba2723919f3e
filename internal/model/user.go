package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"

	// RoleSchoolAdmin is a token role only: school-admin sessions authenticate
	// against the School record and carry no user id.
	RoleSchoolAdmin Role = "school_admin"
)

// User is a school member. Accounts created through an invitation start
// isVerified=true (the invitation is the verification channel) but
// isActive=false and isTemporaryPassword=true until registration completes.
type User struct {
	ID                  uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SchoolID            string                      `gorm:"type:varchar(8);not null;index" json:"schoolId"`
	Email               string                      `gorm:"type:varchar(255);not null" json:"email"`
	Password            string                      `gorm:"type:varchar(255);not null" json:"-"`
	FirstName           string                      `gorm:"type:varchar(128);not null" json:"firstName"`
	LastName            string                      `gorm:"type:varchar(128);not null" json:"lastName"`
	Role                Role                        `gorm:"type:varchar(16);not null;index" json:"role"`
	Phone               string                      `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Subjects            datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"subjects,omitempty"`
	Classes             datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"classes,omitempty"`
	StudentIDs          datatypes.JSONSlice[string] `gorm:"type:jsonb;column:student_ids" json:"studentIds,omitempty"`
	IsVerified          bool                        `gorm:"not null;default:false" json:"isVerified"`
	IsActive            bool                        `gorm:"not null;default:true" json:"isActive"`
	IsTemporaryPassword bool                        `gorm:"not null;default:false" json:"isTemporaryPassword"`
	InvitedBy           *uuid.UUID                  `gorm:"type:uuid" json:"invitedBy,omitempty"`
	InvitedAt           *time.Time                  `json:"invitedAt,omitempty"`
	LastLogin           *time.Time                  `json:"lastLogin,omitempty"`
	CreatedAt           time.Time                   `json:"createdAt"`
	UpdatedAt           time.Time                   `json:"updatedAt"`
	DeletedAt           gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
