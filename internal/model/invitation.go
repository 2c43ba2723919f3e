package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// Transition guard errors. The messages are returned verbatim to API callers.
var (
	ErrInvitationNotValid       = errors.New("Invitation is not valid or has expired")
	ErrInvitationNotCancellable = errors.New("Only pending invitations can be cancelled")
	ErrInvitationNotResendable  = errors.New("Only pending or expired invitations can be resent")
	ErrInvitationNotExtendable  = errors.New("Only pending invitations can be extended")
)

// Role-conditional metadata errors.
var (
	ErrTeacherSubjectsRequired  = errors.New("Subjects are required for teacher invitations")
	ErrTeacherHasStudentIDs     = errors.New("Student IDs are not allowed for teacher invitations")
	ErrParentStudentIDsRequired = errors.New("Student IDs are required for parent invitations")
	ErrParentHasTeacherFields   = errors.New("Subjects and classes are not allowed for parent invitations")
)

// InvitationMetadata is the role-dependent payload stored alongside an
// invitation: teacher invites carry subjects/classes, parent invites carry
// student links. TempPassword is persisted so resends can repeat the
// credential, but it never serializes into API responses.
type InvitationMetadata struct {
	FirstName    string   `json:"firstName,omitempty"`
	LastName     string   `json:"lastName,omitempty"`
	Message      string   `json:"message,omitempty"`
	UserID       string   `json:"userId,omitempty"`
	Subjects     []string `json:"subjects,omitempty"`
	Classes      []string `json:"classes,omitempty"`
	StudentIDs   []string `json:"studentIds,omitempty"`
	StudentNames []string `json:"studentNames,omitempty"`
	TempPassword string   `json:"-"`
}

// storedMetadata is the database encoding of InvitationMetadata. It re-adds
// the temporary credential that the API encoding hides.
type storedMetadata struct {
	InvitationMetadata
	TempPassword string `json:"tempPassword,omitempty"`
}

func (m InvitationMetadata) Value() (driver.Value, error) {
	return json.Marshal(storedMetadata{InvitationMetadata: m, TempPassword: m.TempPassword})
}

func (m *InvitationMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = InvitationMetadata{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("InvitationMetadata.Scan: type assertion to []byte failed")
	}
	var stored storedMetadata
	if err := json.Unmarshal(bytes, &stored); err != nil {
		return err
	}
	*m = stored.InvitationMetadata
	m.TempPassword = stored.TempPassword
	return nil
}

// Invitation is the ledger entry for one invited account. Rows are never
// physically deleted; the status field is the whole lifecycle. The token is a
// bearer secret and only leaves the server in the creation response.
type Invitation struct {
	ID                 uuid.UUID          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Token              string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"-"`
	SchoolID           string             `gorm:"type:varchar(8);not null;index" json:"schoolId"`
	Email              string             `gorm:"type:varchar(255);not null" json:"email"`
	Role               Role               `gorm:"type:varchar(16);not null" json:"role"`
	Status             InvitationStatus   `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	InvitedBy          uuid.UUID          `gorm:"type:uuid;not null" json:"invitedBy"`
	Metadata           InvitationMetadata `gorm:"type:jsonb" json:"metadata"`
	ExpiresAt          time.Time          `gorm:"not null;index" json:"expiresAt"`
	ResendCount        int                `gorm:"not null;default:0" json:"resendCount"`
	LastResendAt       *time.Time         `json:"lastResendAt,omitempty"`
	AcceptedBy         *uuid.UUID         `gorm:"type:uuid" json:"acceptedBy,omitempty"`
	AcceptedAt         *time.Time         `json:"acceptedAt,omitempty"`
	CancelledBy        *uuid.UUID         `gorm:"type:uuid" json:"cancelledBy,omitempty"`
	CancelledAt        *time.Time         `json:"cancelledAt,omitempty"`
	CancellationReason string             `gorm:"type:varchar(512)" json:"cancellationReason,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func (Invitation) TableName() string { return "invitations" }

// NewTeacherInvitation builds a pending teacher invitation. Teacher metadata
// must carry subjects and must not carry student links.
func NewTeacherInvitation(schoolID, email string, invitedBy uuid.UUID, meta InvitationMetadata, token string, ttl time.Duration) (*Invitation, error) {
	if len(meta.StudentIDs) > 0 {
		return nil, ErrTeacherHasStudentIDs
	}
	if len(meta.Subjects) == 0 {
		return nil, ErrTeacherSubjectsRequired
	}
	return newInvitation(RoleTeacher, schoolID, email, invitedBy, meta, token, ttl), nil
}

// NewParentInvitation builds a pending parent invitation. Parent metadata
// must carry student links and must not carry subjects or classes.
func NewParentInvitation(schoolID, email string, invitedBy uuid.UUID, meta InvitationMetadata, token string, ttl time.Duration) (*Invitation, error) {
	if len(meta.Subjects) > 0 || len(meta.Classes) > 0 {
		return nil, ErrParentHasTeacherFields
	}
	if len(meta.StudentIDs) == 0 {
		return nil, ErrParentStudentIDsRequired
	}
	return newInvitation(RoleParent, schoolID, email, invitedBy, meta, token, ttl), nil
}

func newInvitation(role Role, schoolID, email string, invitedBy uuid.UUID, meta InvitationMetadata, token string, ttl time.Duration) *Invitation {
	return &Invitation{
		Token:     token,
		SchoolID:  schoolID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Role:      role,
		Status:    InvitationPending,
		InvitedBy: invitedBy,
		Metadata:  meta,
		ExpiresAt: time.Now().Add(ttl),
	}
}

// IsExpired reports whether the expiry instant has passed, independent of the
// stored status: a row can read pending long after it expired, until a sweep
// flips it.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// IsValid reports whether the invitation can still be accepted.
func (i *Invitation) IsValid() bool {
	return i.Status == InvitationPending && !i.IsExpired()
}

// Accept marks the invitation accepted. Allowed only while IsValid.
func (i *Invitation) Accept(acceptedBy uuid.UUID) error {
	if !i.IsValid() {
		return ErrInvitationNotValid
	}
	now := time.Now()
	i.Status = InvitationAccepted
	i.AcceptedBy = &acceptedBy
	i.AcceptedAt = &now
	return nil
}

// Cancel marks the invitation cancelled. The guard is on raw status: an
// expired-but-still-pending invitation can be cancelled, as an admin
// override.
func (i *Invitation) Cancel(cancelledBy uuid.UUID, reason string) error {
	if i.Status != InvitationPending {
		return ErrInvitationNotCancellable
	}
	now := time.Now()
	i.Status = InvitationCancelled
	i.CancelledBy = &cancelledBy
	i.CancelledAt = &now
	i.CancellationReason = reason
	return nil
}

// Resend re-arms the invitation: back to pending, resend counter bumped,
// expiry reset to now+extension. Allowed from pending or expired.
func (i *Invitation) Resend(extension time.Duration) error {
	if i.Status != InvitationPending && i.Status != InvitationExpired {
		return ErrInvitationNotResendable
	}
	now := time.Now()
	i.Status = InvitationPending
	i.ResendCount++
	i.LastResendAt = &now
	i.ExpiresAt = now.Add(extension)
	return nil
}

// ExtendExpiration pushes the existing expiry out by d. Additive, not a
// reset, and only for rows whose stored status is pending.
func (i *Invitation) ExtendExpiration(d time.Duration) error {
	if i.Status != InvitationPending {
		return ErrInvitationNotExtendable
	}
	i.ExpiresAt = i.ExpiresAt.Add(d)
	return nil
}

// FullName is the invitee's name from metadata, falling back to the email.
func (i *Invitation) FullName() string {
	name := strings.TrimSpace(i.Metadata.FirstName + " " + i.Metadata.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

func (i *Invitation) DisplayName() string {
	return fmt.Sprintf("%s (%s)", i.FullName(), i.Role)
}

// StatusDisplay is the human status label. An expired-but-pending row reads
// as Expired even though the stored status has not been swept yet.
func (i *Invitation) StatusDisplay() string {
	if i.Status == InvitationPending && i.IsExpired() {
		return "Expired"
	}
	switch i.Status {
	case InvitationPending:
		return "Pending"
	case InvitationAccepted:
		return "Accepted"
	case InvitationExpired:
		return "Expired"
	case InvitationCancelled:
		return "Cancelled"
	default:
		return string(i.Status)
	}
}

// TimeRemaining is a humanized countdown while the invitation is pending,
// empty once resolved or expired past readability.
func (i *Invitation) TimeRemaining() string {
	if i.Status != InvitationPending {
		return ""
	}
	if i.IsExpired() {
		return "expired"
	}
	return humanize.Time(i.ExpiresAt)
}

// InvitationView is the read shape: the stored row plus the derived fields
// every list and detail endpoint reports.
type InvitationView struct {
	Invitation
	IsExpired     bool   `json:"isExpired"`
	IsValid       bool   `json:"isValid"`
	FullName      string `json:"fullName"`
	DisplayName   string `json:"displayName"`
	StatusDisplay string `json:"statusDisplay"`
	TimeRemaining string `json:"timeRemaining,omitempty"`
}

func (i Invitation) View() InvitationView {
	return InvitationView{
		Invitation:    i,
		IsExpired:     i.IsExpired(),
		IsValid:       i.IsValid(),
		FullName:      i.FullName(),
		DisplayName:   i.DisplayName(),
		StatusDisplay: i.StatusDisplay(),
		TimeRemaining: i.TimeRemaining(),
	}
}
