package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/database/dbtest"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/notify"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	ctx    context.Context
	reg    *Registry
	outbox *notify.Outbox
	tokens *cache.MemoryCache
	users  *repository.UserRepository
	admin  policy.Principal
}

// newEnv migrates a fresh database, wires every service and provisions a superadmin
func newEnv(t *testing.T) *testEnv {
	t.Helper()
	dbtest.Setup(t)

	tokens := cache.NewMemoryCache()
	t.Cleanup(func() { tokens.Close() })

	env := &testEnv{
		ctx:    context.Background(),
		outbox: notify.NewOutbox(),
		tokens: tokens,
		users:  repository.NewUserRepository(),
	}
	env.reg = NewRegistry(Dependencies{
		Hasher:   auth.NewHasher(bcrypt.MinCost),
		Sessions: auth.NewSessionManager(testSecret, time.Hour, tokens),
		Tokens:   tokens,
		Mailer:   env.outbox,
		Policy:   policy.MustNewEngine(),
		Account:  AccountConfig{BaseURL: "http://records.test", ResetTTL: time.Hour},
	})

	root, err := env.reg.Accounts.CreateAdmin(env.ctx, "root", "root@example.com", "rootpass123")
	require.NoError(t, err)
	env.admin = env.principal(t, root.Username)
	return env
}

// principal resolves a username the way the session middleware does
func (e *testEnv) principal(t *testing.T, username string) policy.Principal {
	t.Helper()
	user, err := e.users.GetByUsername(e.ctx, username)
	require.NoError(t, err)
	p, err := e.reg.Accounts.principalFor(e.ctx, user)
	require.NoError(t, err)
	return p
}

func (e *testEnv) department(t *testing.T, name string) *models.Department {
	t.Helper()
	d, err := e.reg.Departments.Create(e.ctx, e.admin, &models.DepartmentRequest{Name: name})
	require.NoError(t, err)
	return d
}

// doctor adds a rostered doctor with a login named username
func (e *testEnv) doctor(t *testing.T, deptID uint, username, fullName string) (*models.Doctor, policy.Principal) {
	t.Helper()
	d, err := e.reg.Doctors.Create(e.ctx, e.admin, &models.DoctorRequest{
		FullName:     fullName,
		DepartmentID: deptID,
		Email:        username + "@example.com",
		Username:     username,
		Password1:    "doctorpass1",
		Password2:    "doctorpass1",
	})
	require.NoError(t, err)
	return d, e.principal(t, username)
}

func patientRequest(username, first, last string) *models.PatientAccountRequest {
	return &models.PatientAccountRequest{
		PatientRequest: models.PatientRequest{
			FirstName:   first,
			LastName:    last,
			DateOfBirth: "1990-05-01",
			Gender:      models.GenderFemale,
			Email:       username + "@example.com",
			Phone:       "9876543210",
			BloodType:   "O+",
		},
		Username:  username,
		Password1: "patientpass1",
		Password2: "patientpass1",
	}
}

// patient registers a patient with a portal login named username
func (e *testEnv) patient(t *testing.T, username, first, last string) (*models.Patient, policy.Principal) {
	t.Helper()
	p, err := e.reg.Patients.Create(e.ctx, e.admin, patientRequest(username, first, last))
	require.NoError(t, err)
	return p, e.principal(t, username)
}

func (e *testEnv) record(t *testing.T, patientID, doctorID, deptID uint, diagnosis string) *models.HealthRecord {
	t.Helper()
	r, err := e.reg.HealthRecords.Create(e.ctx, e.admin, &models.HealthRecordRequest{
		PatientID:    patientID,
		DoctorID:     doctorID,
		DepartmentID: deptID,
		Diagnosis:    diagnosis,
	})
	require.NoError(t, err)
	return r
}

func (e *testEnv) appointment(t *testing.T, patientID, doctorID, deptID uint) *models.Appointment {
	t.Helper()
	a, err := e.reg.Appointments.Book(e.ctx, e.admin, &models.AppointmentRequest{
		PatientID:       &patientID,
		DoctorID:        doctorID,
		DepartmentID:    deptID,
		AppointmentDate: "2030-01-15T10:30",
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) createUser(t *testing.T, username string, role models.Role, password string) *models.User {
	t.Helper()
	u, err := e.reg.Accounts.CreateUser(e.ctx, e.admin, &models.CreateUserRequest{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Role:     role,
		Password: password,
	})
	require.NoError(t, err)
	return u
}

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }
