package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/cache"
	"edubase/schoolhub/internal/config"
	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/internal/repository"
	"edubase/schoolhub/pkg/crypto"
	"edubase/schoolhub/pkg/jwt"
)

const listCacheTTL = 5 * time.Minute

type TeacherInvitationInput struct {
	Email     string
	FirstName string
	LastName  string
	Subjects  []string
	Classes   []string
	Message   string
}

type ParentInvitationInput struct {
	Email      string
	FirstName  string
	LastName   string
	StudentIDs []string
	Message    string
}

type CompleteRegistrationInput struct {
	Email           string
	SchoolID        string
	CurrentPassword string
	NewPassword     string
	Phone           string
	Subjects        []string
	Classes         []string
}

type StudentSummary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Grade    string `json:"grade,omitempty"`
}

// InvitationResult is the creation response. It is the only place the
// invitation token and the temporary password ever leave the server.
type InvitationResult struct {
	Invitation        model.InvitationView `json:"invitation"`
	User              *model.User          `json:"user"`
	Students          []StudentSummary     `json:"students,omitempty"`
	InvitationToken   string               `json:"invitationToken"`
	TemporaryPassword string               `json:"temporaryPassword"`
	EmailSent         bool                 `json:"emailSent"`
}

type ResendResult struct {
	Invitation model.InvitationView `json:"invitation"`
	EmailSent  bool                 `json:"emailSent"`
}

type RegistrationResult struct {
	User   *model.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

type InvitationStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Accepted  int64 `json:"accepted"`
	Expired   int64 `json:"expired"`
	Cancelled int64 `json:"cancelled"`
}

// InvitationPreview is the public landing-page shape behind an invite link:
// enough to render who invited whom, nothing secret. The token that looked it
// up is never echoed back.
type InvitationPreview struct {
	SchoolID      string     `json:"schoolId"`
	SchoolName    string     `json:"schoolName"`
	Email         string     `json:"email"`
	Role          model.Role `json:"role"`
	FirstName     string     `json:"firstName,omitempty"`
	StatusDisplay string     `json:"statusDisplay"`
	IsValid       bool       `json:"isValid"`
	ExpiresAt     time.Time  `json:"expiresAt"`
}

type InvitationService interface {
	InviteTeacher(ctx context.Context, schoolID string, actorID uuid.UUID, in TeacherInvitationInput) (*InvitationResult, error)
	InviteParent(ctx context.Context, schoolID string, actorID uuid.UUID, in ParentInvitationInput) (*InvitationResult, error)
	ResendInvitation(ctx context.Context, schoolID string, invitationID uuid.UUID) (*ResendResult, error)
	CancelInvitation(ctx context.Context, schoolID string, invitationID, actorID uuid.UUID, reason string) (*model.InvitationView, error)
	CompleteRegistration(ctx context.Context, in CompleteRegistrationInput) (*RegistrationResult, error)
	GetInvitation(ctx context.Context, schoolID string, invitationID uuid.UUID) (*model.InvitationView, error)
	// ValidateInvitationToken resolves an invite-link token into its public
	// preview. Unknown tokens are a NotFoundError; expired or resolved
	// invitations still return a preview so the landing page can say why the
	// link no longer works.
	ValidateInvitationToken(ctx context.Context, token string) (*InvitationPreview, error)
	ListInvitations(ctx context.Context, schoolID string, status model.InvitationStatus) ([]model.InvitationView, error)
	ListExpiredInvitations(ctx context.Context, schoolID string) ([]model.InvitationView, error)
	GetStats(ctx context.Context, schoolID string) (*InvitationStats, error)
	// SweepExpired durably flips every pending invitation past its expiry to
	// expired and returns the number of rows touched.
	SweepExpired(ctx context.Context) (int64, error)
}

type invitationService struct {
	schoolRepo      repository.SchoolRepository
	userRepo        repository.UserRepository
	studentRepo     repository.StudentRepository
	invitationRepo  repository.InvitationRepository
	cache           cache.Client
	dispatcher      NotificationDispatcher
	tokens          *jwt.Manager
	logger          *zap.Logger
	inviteTTL       time.Duration
	resendExtension time.Duration
}

func NewInvitationService(
	schoolRepo repository.SchoolRepository,
	userRepo repository.UserRepository,
	studentRepo repository.StudentRepository,
	invitationRepo repository.InvitationRepository,
	cacheClient cache.Client,
	dispatcher NotificationDispatcher,
	tokens *jwt.Manager,
	cfg config.InvitationConfig,
	logger *zap.Logger,
) InvitationService {
	return &invitationService{
		schoolRepo:      schoolRepo,
		userRepo:        userRepo,
		studentRepo:     studentRepo,
		invitationRepo:  invitationRepo,
		cache:           cacheClient,
		dispatcher:      dispatcher,
		tokens:          tokens,
		logger:          logger,
		inviteTTL:       time.Duration(cfg.ExpiryHours) * time.Hour,
		resendExtension: time.Duration(cfg.ResendExtensionHours) * time.Hour,
	}
}

func (s *invitationService) InviteTeacher(ctx context.Context, schoolID string, actorID uuid.UUID, in TeacherInvitationInput) (*InvitationResult, error) {
	school, admin, err := s.resolveSchoolAndAdmin(ctx, schoolID, actorID)
	if err != nil {
		return nil, err
	}

	token, err := crypto.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	meta := model.InvitationMetadata{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Message:   in.Message,
		Subjects:  in.Subjects,
		Classes:   in.Classes,
	}
	inv, err := model.NewTeacherInvitation(schoolID, in.Email, admin.ID, meta, token, s.inviteTTL)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	if err := s.checkNoActiveInvitation(ctx, schoolID, inv.Email, model.RoleTeacher); err != nil {
		return nil, err
	}

	user := &model.User{
		SchoolID:  schoolID,
		Email:     inv.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      model.RoleTeacher,
		Subjects:  in.Subjects,
		Classes:   in.Classes,
	}
	tempPassword, err := s.provisionUser(ctx, user, admin.ID)
	if err != nil {
		return nil, err
	}

	inv.Metadata.UserID = user.ID.String()
	inv.Metadata.TempPassword = tempPassword
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		s.compensateUser(ctx, user.ID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("An active invitation already exists for this email")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.invalidateSchoolCaches(ctx, schoolID)

	emailResult := s.sendInvitationEmail(ctx, school, inv, false)
	return &InvitationResult{
		Invitation:        inv.View(),
		User:              user,
		InvitationToken:   inv.Token,
		TemporaryPassword: tempPassword,
		EmailSent:         emailResult.Success,
	}, nil
}

func (s *invitationService) InviteParent(ctx context.Context, schoolID string, actorID uuid.UUID, in ParentInvitationInput) (*InvitationResult, error) {
	school, admin, err := s.resolveSchoolAndAdmin(ctx, schoolID, actorID)
	if err != nil {
		return nil, err
	}

	students, err := s.resolveStudents(ctx, schoolID, in.StudentIDs)
	if err != nil {
		return nil, err
	}
	summaries := make([]StudentSummary, len(students))
	studentNames := make([]string, len(students))
	for i, st := range students {
		summaries[i] = StudentSummary{ID: st.ID.String(), FullName: st.FullName(), Grade: st.Grade}
		studentNames[i] = st.FullName()
	}

	token, err := crypto.GenerateInvitationToken()
	if err != nil {
		return nil, fmt.Errorf("generate invitation token: %w", err)
	}
	meta := model.InvitationMetadata{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Message:      in.Message,
		StudentIDs:   in.StudentIDs,
		StudentNames: studentNames,
	}
	inv, err := model.NewParentInvitation(schoolID, in.Email, admin.ID, meta, token, s.inviteTTL)
	if err != nil {
		return nil, NewValidationError(err.Error())
	}

	if err := s.checkNoActiveInvitation(ctx, schoolID, inv.Email, model.RoleParent); err != nil {
		return nil, err
	}

	user := &model.User{
		SchoolID:   schoolID,
		Email:      inv.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Role:       model.RoleParent,
		StudentIDs: in.StudentIDs,
	}
	tempPassword, err := s.provisionUser(ctx, user, admin.ID)
	if err != nil {
		return nil, err
	}

	// Grant access now, pending activation. Set semantics: re-adding the
	// same parent is a no-op.
	linked := make([]uuid.UUID, 0, len(students))
	for _, st := range students {
		if err := s.studentRepo.AddParent(ctx, st.ID, user.ID.String()); err != nil {
			s.unlinkParents(ctx, linked, user.ID.String())
			s.compensateUser(ctx, user.ID)
			return nil, fmt.Errorf("link parent to student: %w", err)
		}
		linked = append(linked, st.ID)
	}

	inv.Metadata.UserID = user.ID.String()
	inv.Metadata.TempPassword = tempPassword
	if err := s.invitationRepo.Create(ctx, inv); err != nil {
		s.unlinkParents(ctx, linked, user.ID.String())
		s.compensateUser(ctx, user.ID)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("An active invitation already exists for this email")
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}

	s.invalidateSchoolCaches(ctx, schoolID)

	emailResult := s.sendInvitationEmail(ctx, school, inv, false)
	return &InvitationResult{
		Invitation:        inv.View(),
		User:              user,
		Students:          summaries,
		InvitationToken:   inv.Token,
		TemporaryPassword: tempPassword,
		EmailSent:         emailResult.Success,
	}, nil
}

func (s *invitationService) ResendInvitation(ctx context.Context, schoolID string, invitationID uuid.UUID) (*ResendResult, error) {
	inv, err := s.getScoped(ctx, schoolID, invitationID)
	if err != nil {
		return nil, err
	}
	if err := inv.Resend(s.resendExtension); err != nil {
		return nil, NewInvalidStateError(err)
	}
	if err := s.invitationRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	s.invalidateSchoolCaches(ctx, schoolID)

	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("School not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve school: %w", err)
	}
	emailResult := s.sendInvitationEmail(ctx, school, inv, true)
	return &ResendResult{Invitation: inv.View(), EmailSent: emailResult.Success}, nil
}

func (s *invitationService) CancelInvitation(ctx context.Context, schoolID string, invitationID, actorID uuid.UUID, reason string) (*model.InvitationView, error) {
	inv, err := s.getScoped(ctx, schoolID, invitationID)
	if err != nil {
		return nil, err
	}
	_, actor, err := s.resolveSchoolAndAdmin(ctx, schoolID, actorID)
	if err != nil {
		return nil, err
	}
	if err := inv.Cancel(actor.ID, reason); err != nil {
		return nil, NewInvalidStateError(err)
	}

	// Deactivate the provisional account, but never a user who already
	// completed registration.
	if err := s.deactivateProvisionalUser(ctx, inv); err != nil {
		return nil, err
	}

	if err := s.invitationRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invitation: %w", err)
	}

	s.invalidateSchoolCaches(ctx, schoolID)
	view := inv.View()
	return &view, nil
}

func (s *invitationService) CompleteRegistration(ctx context.Context, in CompleteRegistrationInput) (*RegistrationResult, error) {
	user, err := s.userRepo.GetTemporaryByEmailAndSchool(ctx, in.Email, in.SchoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("User not found or registration already completed")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}

	if !crypto.CheckPassword(in.CurrentPassword, user.Password) {
		return nil, NewAuthenticationError("Invalid current password")
	}
	if len(in.NewPassword) < 8 {
		return nil, NewValidationError("New password must be at least 8 characters long")
	}
	if (len(in.Subjects) > 0 || len(in.Classes) > 0) && user.Role != model.RoleTeacher {
		return nil, NewValidationError("Subjects and classes can only be updated for teacher accounts")
	}

	hash, err := crypto.HashPassword(in.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now()
	user.Password = hash
	user.IsTemporaryPassword = false
	user.IsActive = true
	user.LastLogin = &now
	if in.Phone != "" {
		user.Phone = in.Phone
	}
	if len(in.Subjects) > 0 {
		user.Subjects = in.Subjects
	}
	if len(in.Classes) > 0 {
		user.Classes = in.Classes
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.acceptLinkedInvitation(ctx, user)
	s.invalidateSchoolCaches(ctx, user.SchoolID)

	tokens, err := issueTokenPair(s.tokens, jwt.Identity{
		UserID:   user.ID.String(),
		SchoolID: user.SchoolID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	return &RegistrationResult{User: user, Tokens: tokens}, nil
}

func (s *invitationService) GetInvitation(ctx context.Context, schoolID string, invitationID uuid.UUID) (*model.InvitationView, error) {
	inv, err := s.getScoped(ctx, schoolID, invitationID)
	if err != nil {
		return nil, err
	}
	view := inv.View()
	return &view, nil
}

func (s *invitationService) ValidateInvitationToken(ctx context.Context, token string) (*InvitationPreview, error) {
	if token == "" {
		return nil, NewValidationError("Invitation token is required")
	}
	inv, err := s.invitationRepo.GetByToken(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve invitation: %w", err)
	}
	school, err := s.schoolRepo.GetBySchoolID(ctx, inv.SchoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve school: %w", err)
	}
	return &InvitationPreview{
		SchoolID:      inv.SchoolID,
		SchoolName:    school.Name,
		Email:         inv.Email,
		Role:          inv.Role,
		FirstName:     inv.Metadata.FirstName,
		StatusDisplay: inv.StatusDisplay(),
		IsValid:       inv.IsValid(),
		ExpiresAt:     inv.ExpiresAt,
	}, nil
}

func (s *invitationService) ListInvitations(ctx context.Context, schoolID string, status model.InvitationStatus) ([]model.InvitationView, error) {
	statusKey := string(status)
	if statusKey == "" {
		statusKey = "all"
	}
	cacheKey := cache.Key(schoolID, "list", statusKey)

	var views []model.InvitationView
	if s.cache.Get(ctx, cache.NamespaceInvitations, cacheKey, &views) {
		return views, nil
	}

	invitations, err := s.invitationRepo.ListBySchool(ctx, schoolID, status)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	views = make([]model.InvitationView, len(invitations))
	for i, inv := range invitations {
		views[i] = inv.View()
	}
	s.cache.Set(ctx, cache.NamespaceInvitations, cacheKey, views, listCacheTTL)
	return views, nil
}

func (s *invitationService) ListExpiredInvitations(ctx context.Context, schoolID string) ([]model.InvitationView, error) {
	invitations, err := s.invitationRepo.ListExpiredBySchool(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("list expired invitations: %w", err)
	}
	views := make([]model.InvitationView, len(invitations))
	for i, inv := range invitations {
		views[i] = inv.View()
	}
	return views, nil
}

func (s *invitationService) GetStats(ctx context.Context, schoolID string) (*InvitationStats, error) {
	var stats InvitationStats
	if s.cache.Get(ctx, cache.NamespaceDashboard, schoolID, &stats) {
		return &stats, nil
	}

	counts, err := s.invitationRepo.CountByStatus(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("count invitations: %w", err)
	}
	stats = InvitationStats{
		Pending:   counts[model.InvitationPending],
		Accepted:  counts[model.InvitationAccepted],
		Expired:   counts[model.InvitationExpired],
		Cancelled: counts[model.InvitationCancelled],
	}
	stats.Total = stats.Pending + stats.Accepted + stats.Expired + stats.Cancelled
	s.cache.Set(ctx, cache.NamespaceDashboard, schoolID, stats, listCacheTTL)
	return &stats, nil
}

func (s *invitationService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.invitationRepo.ExpireStale(ctx)
	if err != nil {
		return 0, fmt.Errorf("expire stale invitations: %w", err)
	}
	if count > 0 {
		s.logger.Info("expired stale invitations", zap.Int64("count", count))
		if !s.cache.DelPattern(ctx, cache.NamespaceInvitations+":*") || !s.cache.DelPattern(ctx, cache.NamespaceDashboard+":*") {
			s.logger.Warn("invitation caches may be stale after sweep")
		}
	}
	return count, nil
}

// resolveSchoolAndAdmin gates every provisioning mutation: the school must be
// active and verified, and the acting admin must be an active admin of that
// school. A zero actorID (school-admin session) falls back to the school's
// admin account.
func (s *invitationService) resolveSchoolAndAdmin(ctx context.Context, schoolID string, actorID uuid.UUID) (*model.School, *model.User, error) {
	school, err := s.schoolRepo.GetBySchoolID(ctx, schoolID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, NewNotFoundError("School not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve school: %w", err)
	}
	if !school.IsOperational() {
		return nil, nil, NewNotFoundError("School not found")
	}

	var admin *model.User
	if actorID != uuid.Nil {
		admin, err = s.userRepo.GetByID(ctx, actorID)
		if err == nil && (admin.SchoolID != schoolID || admin.Role != model.RoleAdmin || !admin.IsActive) {
			return nil, nil, NewValidationError("No admin user found for this school")
		}
	} else {
		admin, err = s.userRepo.GetAdminForSchool(ctx, schoolID)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, NewValidationError("No admin user found for this school")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve admin: %w", err)
	}
	return school, admin, nil
}

// resolveStudents enforces the all-or-nothing rule: every id must parse and
// resolve to an active student of the school, or the whole call fails.
func (s *invitationService) resolveStudents(ctx context.Context, schoolID string, ids []string) ([]model.Student, error) {
	if len(ids) == 0 {
		return nil, NewValidationError(model.ErrParentStudentIDsRequired.Error())
	}
	parsed := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, NewValidationError("One or more student IDs are invalid or do not belong to this school")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		parsed = append(parsed, id)
	}
	students, err := s.studentRepo.GetActiveByIDs(ctx, schoolID, parsed)
	if err != nil {
		return nil, fmt.Errorf("resolve students: %w", err)
	}
	if len(students) != len(parsed) {
		return nil, NewValidationError("One or more student IDs are invalid or do not belong to this school")
	}
	return students, nil
}

func (s *invitationService) checkNoActiveInvitation(ctx context.Context, schoolID, email string, role model.Role) error {
	_, err := s.invitationRepo.GetActive(ctx, schoolID, email, role)
	if err == nil {
		return NewConflictError("An active invitation already exists for this email")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check active invitation: %w", err)
	}
	return nil
}

// provisionUser creates the invited account in its pre-activation shape and
// returns the plaintext temporary credential.
func (s *invitationService) provisionUser(ctx context.Context, user *model.User, invitedBy uuid.UUID) (string, error) {
	tempPassword, err := crypto.GenerateTemporaryPassword()
	if err != nil {
		return "", fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := crypto.HashPassword(tempPassword)
	if err != nil {
		return "", fmt.Errorf("hash temporary password: %w", err)
	}
	now := time.Now()
	user.Password = hash
	user.IsVerified = true
	user.IsActive = false
	user.IsTemporaryPassword = true
	user.InvitedBy = &invitedBy
	user.InvitedAt = &now
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", NewConflictError("A user with this email already exists for this school")
		}
		return "", fmt.Errorf("create provisional user: %w", err)
	}
	return tempPassword, nil
}

func (s *invitationService) compensateUser(ctx context.Context, userID uuid.UUID) {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		s.logger.Error("failed to remove provisional user after partial provisioning",
			zap.String("userId", userID.String()), zap.Error(err))
	}
}

func (s *invitationService) unlinkParents(ctx context.Context, studentIDs []uuid.UUID, parentID string) {
	for _, id := range studentIDs {
		if err := s.studentRepo.RemoveParent(ctx, id, parentID); err != nil {
			s.logger.Error("failed to unlink parent after partial provisioning",
				zap.String("studentId", id.String()), zap.Error(err))
		}
	}
}

func (s *invitationService) deactivateProvisionalUser(ctx context.Context, inv *model.Invitation) error {
	if inv.Metadata.UserID == "" {
		return nil
	}
	userID, err := uuid.Parse(inv.Metadata.UserID)
	if err != nil {
		s.logger.Warn("invitation references malformed user id", zap.String("invitationId", inv.ID.String()))
		return nil
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve provisional user: %w", err)
	}
	if !user.IsTemporaryPassword {
		return nil
	}
	user.IsActive = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("deactivate provisional user: %w", err)
	}
	return nil
}

// acceptLinkedInvitation closes the loop on registration: the live invitation
// for this account flips to accepted. Best-effort; a missing or already
// resolved invitation does not fail the registration.
func (s *invitationService) acceptLinkedInvitation(ctx context.Context, user *model.User) {
	inv, err := s.invitationRepo.GetActive(ctx, user.SchoolID, user.Email, user.Role)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("could not resolve invitation during registration", zap.Error(err))
		return
	}
	if err := inv.Accept(user.ID); err != nil {
		return
	}
	if err := s.invitationRepo.Update(ctx, inv); err != nil {
		s.logger.Warn("could not mark invitation accepted", zap.String("invitationId", inv.ID.String()), zap.Error(err))
	}
}

func (s *invitationService) getScoped(ctx context.Context, schoolID string, invitationID uuid.UUID) (*model.Invitation, error) {
	inv, err := s.invitationRepo.GetByID(ctx, invitationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NewNotFoundError("Invitation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve invitation: %w", err)
	}
	if inv.SchoolID != schoolID {
		return nil, NewNotFoundError("Invitation not found")
	}
	return inv, nil
}

func (s *invitationService) invalidateSchoolCaches(ctx context.Context, schoolID string) {
	listsOK := s.cache.DelPattern(ctx, cache.NamespaceInvitations+":"+schoolID+":*")
	statsOK := s.cache.Delete(ctx, cache.NamespaceDashboard, schoolID)
	if !listsOK || !statsOK {
		s.logger.Warn("cache invalidation incomplete, serving may be stale", zap.String("schoolId", schoolID))
	}
}

func (s *invitationService) sendInvitationEmail(ctx context.Context, school *model.School, inv *model.Invitation, isResend bool) EmailResult {
	templateName := TemplateTeacherInvitation
	if inv.Role == model.RoleParent {
		templateName = TemplateParentInvitation
	}
	subject := fmt.Sprintf("You have been invited to join %s", school.Name)
	if isResend {
		subject = fmt.Sprintf("Reminder: your invitation to %s", school.Name)
	}
	vars := map[string]interface{}{
		"FirstName":    inv.Metadata.FirstName,
		"SchoolName":   school.Name,
		"SchoolID":     school.SchoolID,
		"Email":        inv.Email,
		"TempPassword": inv.Metadata.TempPassword,
		"ExpiresAt":    inv.TimeRemaining(),
		"Message":      inv.Metadata.Message,
		"Subjects":     strings.Join(inv.Metadata.Subjects, ", "),
		"StudentNames": strings.Join(inv.Metadata.StudentNames, ", "),
	}
	return s.dispatcher.SendTemplated(ctx, templateName, inv.Email, subject, vars)
}
