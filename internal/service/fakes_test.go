package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"edubase/schoolhub/internal/model"
	"edubase/schoolhub/pkg/crypto"
	"edubase/schoolhub/pkg/jwt"
)

// In-memory repository fakes. They mirror the behavior the services branch
// on: misses return gorm.ErrRecordNotFound, uniqueness violations return
// gorm.ErrDuplicatedKey, and reads hand out copies so a mutation only sticks
// after an explicit Update.

type fakeSchoolRepo struct {
	schools   []model.School
	createErr error
	updateErr error
	// collideIDs forces the next N ExistsBySchoolID calls to report taken.
	collideIDs int
	deleted    []uuid.UUID
}

func (r *fakeSchoolRepo) Create(_ context.Context, school *model.School) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, s := range r.schools {
		if s.SchoolID == school.SchoolID || strings.EqualFold(s.Email, school.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if school.ID == uuid.Nil {
		school.ID = uuid.New()
	}
	r.schools = append(r.schools, *school)
	return nil
}

func (r *fakeSchoolRepo) GetBySchoolID(_ context.Context, schoolID string) (*model.School, error) {
	for _, s := range r.schools {
		if s.SchoolID == schoolID {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSchoolRepo) GetByEmail(_ context.Context, email string) (*model.School, error) {
	for _, s := range r.schools {
		if strings.EqualFold(s.Email, email) {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSchoolRepo) ExistsBySchoolID(_ context.Context, schoolID string) (bool, error) {
	if r.collideIDs > 0 {
		r.collideIDs--
		return true, nil
	}
	for _, s := range r.schools {
		if s.SchoolID == schoolID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSchoolRepo) Update(_ context.Context, school *model.School) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.schools {
		if r.schools[i].ID == school.ID {
			r.schools[i] = *school
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeSchoolRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	for i := range r.schools {
		if r.schools[i].ID == id {
			r.schools = append(r.schools[:i], r.schools[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeSchoolRepo) List(_ context.Context) ([]model.School, error) {
	return append([]model.School(nil), r.schools...), nil
}

// stored returns a pointer into the backing slice so tests can flip flags in
// place. Valid until the next Create.
func (r *fakeSchoolRepo) stored(schoolID string) *model.School {
	for i := range r.schools {
		if r.schools[i].SchoolID == schoolID {
			return &r.schools[i]
		}
	}
	return nil
}

type fakeUserRepo struct {
	users     []model.User
	createErr error
	updateErr error
	deleted   []uuid.UUID
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, u := range r.users {
		if u.SchoolID == user.SchoolID && strings.EqualFold(u.Email, user.Email) {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmailAndSchool(_ context.Context, email, schoolID string) (*model.User, error) {
	for _, u := range r.users {
		if u.SchoolID == schoolID && strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetTemporaryByEmailAndSchool(_ context.Context, email, schoolID string) (*model.User, error) {
	for _, u := range r.users {
		if u.SchoolID == schoolID && strings.EqualFold(u.Email, email) && u.IsTemporaryPassword {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetAdminForSchool(_ context.Context, schoolID string) (*model.User, error) {
	for _, u := range r.users {
		if u.SchoolID == schoolID && u.Role == model.RoleAdmin && u.IsActive {
			cp := u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListBySchool(_ context.Context, schoolID string, role model.Role) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.SchoolID == schoolID && (role == "" || u.Role == role) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.users {
		if r.users[i].ID == user.ID {
			r.users[i] = *user
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.deleted = append(r.deleted, id)
	for i := range r.users {
		if r.users[i].ID == id {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeUserRepo) stored(id uuid.UUID) *model.User {
	for i := range r.users {
		if r.users[i].ID == id {
			return &r.users[i]
		}
	}
	return nil
}

type fakeStudentRepo struct {
	students []model.Student
	// failLinkAt makes the Nth AddParent call fail (1-based); zero disables.
	failLinkAt int
	linkCalls  int
	unlinked   []uuid.UUID
}

func (r *fakeStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.ID == uuid.Nil {
		student.ID = uuid.New()
	}
	r.students = append(r.students, *student)
	return nil
}

func (r *fakeStudentRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Student, error) {
	for _, st := range r.students {
		if st.ID == id {
			cp := st
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) GetActiveByIDs(_ context.Context, schoolID string, ids []uuid.UUID) ([]model.Student, error) {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []model.Student
	for _, st := range r.students {
		if _, ok := wanted[st.ID]; ok && st.SchoolID == schoolID && st.IsActive {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) ListBySchool(_ context.Context, schoolID string) ([]model.Student, error) {
	var out []model.Student
	for _, st := range r.students {
		if st.SchoolID == schoolID {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) ListByParent(_ context.Context, schoolID, parentID string) ([]model.Student, error) {
	var out []model.Student
	for i := range r.students {
		if r.students[i].SchoolID == schoolID && r.students[i].HasParent(parentID) {
			out = append(out, r.students[i])
		}
	}
	return out, nil
}

func (r *fakeStudentRepo) Update(_ context.Context, student *model.Student) error {
	for i := range r.students {
		if r.students[i].ID == student.ID {
			r.students[i] = *student
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) AddParent(_ context.Context, studentID uuid.UUID, parentID string) error {
	r.linkCalls++
	if r.failLinkAt > 0 && r.linkCalls == r.failLinkAt {
		return errors.New("storage offline")
	}
	for i := range r.students {
		if r.students[i].ID == studentID {
			if !r.students[i].HasParent(parentID) {
				r.students[i].ParentIDs = append(r.students[i].ParentIDs, parentID)
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) RemoveParent(_ context.Context, studentID uuid.UUID, parentID string) error {
	r.unlinked = append(r.unlinked, studentID)
	for i := range r.students {
		if r.students[i].ID != studentID {
			continue
		}
		kept := r.students[i].ParentIDs[:0]
		for _, id := range r.students[i].ParentIDs {
			if id != parentID {
				kept = append(kept, id)
			}
		}
		r.students[i].ParentIDs = kept
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeStudentRepo) stored(id uuid.UUID) *model.Student {
	for i := range r.students {
		if r.students[i].ID == id {
			return &r.students[i]
		}
	}
	return nil
}

type fakeInvitationRepo struct {
	invitations []model.Invitation
	createErr   error
	updateErr   error
	expireErr   error
}

func (r *fakeInvitationRepo) Create(_ context.Context, invitation *model.Invitation) error {
	if r.createErr != nil {
		return r.createErr
	}
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	r.invitations = append(r.invitations, *invitation)
	return nil
}

func (r *fakeInvitationRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.ID == id {
			cp := inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) GetByToken(_ context.Context, token string) (*model.Invitation, error) {
	for _, inv := range r.invitations {
		if inv.Token == token {
			cp := inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) GetActive(_ context.Context, schoolID, email string, role model.Role) (*model.Invitation, error) {
	for i := range r.invitations {
		inv := &r.invitations[i]
		if inv.SchoolID == schoolID && strings.EqualFold(inv.Email, email) && inv.Role == role && inv.IsValid() {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) ListBySchool(_ context.Context, schoolID string, status model.InvitationStatus) ([]model.Invitation, error) {
	var out []model.Invitation
	for _, inv := range r.invitations {
		if inv.SchoolID == schoolID && (status == "" || inv.Status == status) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) ListExpiredBySchool(_ context.Context, schoolID string) ([]model.Invitation, error) {
	var out []model.Invitation
	for i := range r.invitations {
		inv := &r.invitations[i]
		if inv.SchoolID == schoolID && inv.Status == model.InvitationPending && inv.IsExpired() {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) Update(_ context.Context, invitation *model.Invitation) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	for i := range r.invitations {
		if r.invitations[i].ID == invitation.ID {
			r.invitations[i] = *invitation
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) ExpireStale(_ context.Context) (int64, error) {
	if r.expireErr != nil {
		return 0, r.expireErr
	}
	var count int64
	for i := range r.invitations {
		inv := &r.invitations[i]
		if inv.Status == model.InvitationPending && inv.IsExpired() {
			inv.Status = model.InvitationExpired
			count++
		}
	}
	return count, nil
}

func (r *fakeInvitationRepo) CountByStatus(_ context.Context, schoolID string) (map[model.InvitationStatus]int64, error) {
	counts := make(map[model.InvitationStatus]int64)
	for _, inv := range r.invitations {
		if inv.SchoolID == schoolID {
			counts[inv.Status]++
		}
	}
	return counts, nil
}

func (r *fakeInvitationRepo) stored(id uuid.UUID) *model.Invitation {
	for i := range r.invitations {
		if r.invitations[i].ID == id {
			return &r.invitations[i]
		}
	}
	return nil
}

type sentMail struct {
	template string
	to       string
	subject  string
	vars     map[string]interface{}
}

// recordingDispatcher captures outgoing mail instead of sending it. fail
// simulates an unreachable relay.
type recordingDispatcher struct {
	sent []sentMail
	fail bool
}

func (d *recordingDispatcher) SendTemplated(_ context.Context, templateName, toEmail, subject string, vars map[string]interface{}) EmailResult {
	d.sent = append(d.sent, sentMail{template: templateName, to: toEmail, subject: subject, vars: vars})
	if d.fail {
		return EmailResult{Success: false, Error: "smtp unavailable"}
	}
	return EmailResult{Success: true, MessageID: uuid.NewString()}
}

func newTestTokens() *jwt.Manager {
	return jwt.NewManager("access-secret", "refresh-secret", "system-admin-secret", "schoolhub-test",
		time.Hour, 168*time.Hour, 8*time.Hour)
}

// The shared bcrypt fixture keeps the suite from rehashing at cost 12 in
// every test that seeds a credentialed account.
const testPassword = "opensesame1"

var (
	testHashOnce sync.Once
	testHash     string
)

func testPasswordHash() string {
	testHashOnce.Do(func() {
		hash, err := crypto.HashPassword(testPassword)
		if err != nil {
			panic(err)
		}
		testHash = hash
	})
	return testHash
}
