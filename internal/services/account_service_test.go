package services

import (
	"net/url"
	"testing"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_DoctorWithoutPasswordQueuesReset(t *testing.T) {
	env := newEnv(t)

	user, err := env.reg.Accounts.CreateUser(env.ctx, env.admin, &models.CreateUserRequest{
		Username:  "dra",
		Email:     "dr.a@example.com",
		Role:      models.RoleDoctor,
		FirstName: "Dr.",
		LastName:  "A",
	})
	require.NoError(t, err)

	stored, err := env.users.GetByID(env.ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasUsablePassword())
	assert.True(t, stored.IsActive)

	profile, err := repository.NewProfileRepository().GetDoctorProfile(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FormatProfileID("DOC", user.ID), profile.PublicID)
	assert.Regexp(t, `^DOC\d{5}$`, profile.PublicID)

	resets := env.outbox.Resets()
	require.Len(t, resets, 1)
	assert.Equal(t, "dr.a@example.com", resets[0].To)
	assert.NotEmpty(t, resets[0].Token)
	assert.False(t, resets[0].ExpiresAt.IsZero())

	entries, err := repository.NewAuditRepository().ListByTarget(env.ctx, "dra")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditCreateUser, entries[0].Action)
	assert.Equal(t, false, entries[0].Details["password_provided"])
	assert.Equal(t, env.admin.UserID, *entries[0].ActorID)
}

func TestCreateUser_ProfileIdentifiersAreUnique(t *testing.T) {
	env := newEnv(t)
	profiles := repository.NewProfileRepository()

	first := env.createUser(t, "doc1", models.RoleDoctor, "password123")
	second := env.createUser(t, "doc2", models.RoleDoctor, "password123")

	p1, err := profiles.GetDoctorProfile(env.ctx, first.ID)
	require.NoError(t, err)
	p2, err := profiles.GetDoctorProfile(env.ctx, second.ID)
	require.NoError(t, err)
	assert.NotEqual(t, p1.PublicID, p2.PublicID)

	doctors, patients, err := profiles.CountForUser(env.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), doctors)
	assert.Zero(t, patients)

	pat := env.createUser(t, "pat1", models.RolePatient, "password123")
	pp, err := profiles.GetPatientProfile(env.ctx, pat.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FormatProfileID("PAT", pat.ID), pp.PublicID)

	// analysts and admins get no profile
	analyst := env.createUser(t, "ana", models.RoleAnalyst, "password123")
	doctors, patients, err = profiles.CountForUser(env.ctx, analyst.ID)
	require.NoError(t, err)
	assert.Zero(t, doctors+patients)

	assert.Empty(t, env.outbox.Resets())
}

func TestCreateUser_DuplicateUsernameIsFieldError(t *testing.T) {
	env := newEnv(t)
	env.createUser(t, "taken", models.RoleAnalyst, "password123")

	_, err := env.reg.Accounts.CreateUser(env.ctx, env.admin, &models.CreateUserRequest{
		Username: "taken",
		Email:    "other@example.com",
		Role:     models.RoleDoctor,
		Password: "password123",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	// nothing partial is left behind
	users, err := env.users.List(env.ctx, 100, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestCreateUser_RequiresAdministrator(t *testing.T) {
	env := newEnv(t)
	env.createUser(t, "ana", models.RoleAnalyst, "password123")
	analyst := env.principal(t, "ana")

	_, err := env.reg.Accounts.CreateUser(env.ctx, analyst, &models.CreateUserRequest{
		Username: "x", Email: "x@example.com", Role: models.RoleAdmin, Password: "password123",
	})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.reg.Accounts.ListUsers(env.ctx, analyst, 10, 0)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateUser_StaffFlagsFollowRole(t *testing.T) {
	env := newEnv(t)

	admin := env.createUser(t, "adm", models.RoleAdmin, "password123")
	assert.True(t, admin.IsStaff)
	assert.False(t, admin.IsSuperuser)

	doc := env.createUser(t, "doc", models.RoleDoctor, "password123")
	assert.False(t, doc.IsStaff)

	root, err := env.users.GetByUsername(env.ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.IsStaff)
	assert.True(t, root.IsSuperuser)
}

func TestLoginLogout(t *testing.T) {
	env := newEnv(t)
	env.createUser(t, "ana", models.RoleAnalyst, "password123")

	_, err := env.reg.Accounts.Login(env.ctx, &models.LoginRequest{Username: "ana", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.reg.Accounts.Login(env.ctx, &models.LoginRequest{Username: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	session, err := env.reg.Accounts.Login(env.ctx, &models.LoginRequest{Username: "ana", Password: "password123"})
	require.NoError(t, err)

	p, err := env.reg.Accounts.Authenticate(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAnalyst, p.Role)
	assert.True(t, p.Authenticated)

	stored, err := env.users.GetByUsername(env.ctx, "ana")
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	require.NoError(t, env.reg.Accounts.Logout(env.ctx, session.Token))
	_, err = env.reg.Accounts.Authenticate(env.ctx, session.Token)
	assert.ErrorIs(t, err, auth.ErrSessionRevoked)
}

func TestLogin_InactiveUserRejected(t *testing.T) {
	env := newEnv(t)
	inactive := false
	_, err := env.reg.Accounts.CreateUser(env.ctx, env.admin, &models.CreateUserRequest{
		Username: "gone", Email: "gone@example.com", Role: models.RoleAnalyst, Password: "password123", IsActive: &inactive,
	})
	require.NoError(t, err)

	_, err = env.reg.Accounts.Login(env.ctx, &models.LoginRequest{Username: "gone", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newEnv(t)
	env.createUser(t, "dra", models.RoleDoctor, "")
	require.Len(t, env.outbox.Resets(), 1)

	require.NoError(t, env.reg.Accounts.RequestPasswordReset(env.ctx, &models.PasswordResetRequest{Email: "DRA@example.com"}))
	resets := env.outbox.Resets()
	require.Len(t, resets, 2)

	link, err := url.Parse(resets[1].Link)
	require.NoError(t, err)
	assert.Equal(t, "/password-reset/confirm", link.Path)
	token := link.Query().Get("token")
	assert.Equal(t, resets[1].Token, token)

	err = env.reg.Accounts.ConfirmPasswordReset(env.ctx, &models.PasswordResetConfirmRequest{
		Token: token, Password1: "newpassword1", Password2: "newpassword2",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password2")

	require.NoError(t, env.reg.Accounts.ConfirmPasswordReset(env.ctx, &models.PasswordResetConfirmRequest{
		Token: token, Password1: "newpassword1", Password2: "newpassword1",
	}))

	_, err = env.reg.Accounts.Login(env.ctx, &models.LoginRequest{Username: "dra", Password: "newpassword1"})
	require.NoError(t, err)
	stored, err := env.users.GetByUsername(env.ctx, "dra")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDoctor, stored.Role)
	assert.True(t, stored.HasUsablePassword())
	assert.NotNil(t, stored.LastLogin)

	// tokens are single use
	err = env.reg.Accounts.ConfirmPasswordReset(env.ctx, &models.PasswordResetConfirmRequest{
		Token: token, Password1: "another-pass", Password2: "another-pass",
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "token")
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	env := newEnv(t)
	require.NoError(t, env.reg.Accounts.RequestPasswordReset(env.ctx, &models.PasswordResetRequest{Email: "nobody@example.com"}))
	assert.Empty(t, env.outbox.Resets())
}

func TestCreateUser_MailFailureKeepsAccount(t *testing.T) {
	env := newEnv(t)
	env.outbox.Err = assert.AnError

	user := env.createUser(t, "dra", models.RoleDoctor, "")
	_, err := env.users.GetByID(env.ctx, user.ID)
	assert.NoError(t, err)
}

func TestSignupStartsSession(t *testing.T) {
	env := newEnv(t)

	session, err := env.reg.Accounts.Signup(env.ctx, patientRequest("newbie", "New", "Bie"))
	require.NoError(t, err)

	p, err := env.reg.Accounts.Authenticate(env.ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RolePatient, p.Role)
	require.NotNil(t, p.PatientID)

	patient, err := repository.NewPatientRepository().GetByID(env.ctx, *p.PatientID)
	require.NoError(t, err)
	assert.Regexp(t, `^PAT\d{8}[0-9A-F]{4}$`, patient.PatientID)
	assert.Equal(t, "newbie@example.com", patient.Email)
}

func TestCreateAdmin_RequiresPassword(t *testing.T) {
	env := newEnv(t)
	_, err := env.reg.Accounts.CreateAdmin(env.ctx, "root2", "root2@example.com", "")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestCreateDoctorAccount_SetsSpecialization(t *testing.T) {
	env := newEnv(t)
	user, err := env.reg.Accounts.CreateDoctorAccount(env.ctx, "cardio", "cardio@example.com", "Ada Heart", "Cardiology", "password123")
	require.NoError(t, err)

	profile, err := repository.NewProfileRepository().GetDoctorProfile(env.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cardiology", profile.Specialization)
	assert.Equal(t, "Ada Heart", profile.FullName)
	assert.Equal(t, "Ada", user.FirstName)
	assert.Equal(t, "Heart", user.LastName)
}

func TestDeleteOwnAccount(t *testing.T) {
	env := newEnv(t)
	dept := env.department(t, "Cardiology")
	doc, _ := env.doctor(t, dept.ID, "drheart", "Ada Heart")
	patient, self := env.patient(t, "jane", "Jane", "Doe")
	env.record(t, patient.ID, doc.ID, dept.ID, "Hypertension")
	appt := env.appointment(t, patient.ID, doc.ID, dept.ID)

	_, err := env.reg.Accounts.DeleteOwnAccount(env.ctx, env.admin)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = env.users.GetByUsername(env.ctx, "root")
	require.NoError(t, err)

	_, drPrincipal := env.doctor(t, dept.ID, "drother", "Other Doc")
	_, err = env.reg.Accounts.DeleteOwnAccount(env.ctx, drPrincipal)
	assert.ErrorIs(t, err, ErrForbidden)

	summary, err := env.reg.Accounts.DeleteOwnAccount(env.ctx, self)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.HealthRecordsDeleted)
	assert.Equal(t, int64(1), summary.AppointmentsDetached)

	_, err = env.users.GetByUsername(env.ctx, "jane")
	assert.True(t, repository.IsNotFound(err))

	kept, err := repository.NewAppointmentRepository().GetByID(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.PatientID)
	assert.Equal(t, "Jane Doe", kept.PatientName)

	entries, err := repository.NewAuditRepository().ListByAction(env.ctx, models.AuditSelfDeleteAccount, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
}
