package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/hospital-records/internal/auth"
	"github.com/otcheredev/hospital-records/internal/cache"
	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/internal/notify"
	"github.com/otcheredev/hospital-records/internal/policy"
	"github.com/otcheredev/hospital-records/internal/repository"
	"github.com/otcheredev/hospital-records/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Session is a freshly issued login session
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// DeletionSummary reports what a delete removed or detached
type DeletionSummary struct {
	Target               string `json:"target"`
	HealthRecordsDeleted int64  `json:"health_records_deleted"`
	AppointmentsDetached int64  `json:"appointments_detached"`
}

// AccountConfig holds account settings taken from configuration
type AccountConfig struct {
	BaseURL  string
	ResetTTL time.Duration
}

// AccountService handles identities: provisioning, login, password reset and
// self-service deletion
type AccountService struct {
	provisioner
	doctors      *repository.DoctorRepository
	healthRecord *repository.HealthRecordRepository
	appointments *repository.AppointmentRepository
	auditRepo    *repository.AuditRepository
	sessions     *auth.SessionManager
	tokens       cache.Cache
	mailer       notify.Mailer
	policy       *policy.Engine
	cfg          AccountConfig
	now          func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo *repository.UserRepository,
	profileRepo *repository.ProfileRepository,
	patientRepo *repository.PatientRepository,
	doctorRepo *repository.DoctorRepository,
	healthRecordRepo *repository.HealthRecordRepository,
	appointmentRepo *repository.AppointmentRepository,
	auditRepo *repository.AuditRepository,
	hasher *auth.Hasher,
	sessions *auth.SessionManager,
	tokens cache.Cache,
	mailer notify.Mailer,
	engine *policy.Engine,
	cfg AccountConfig,
) *AccountService {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 72 * time.Hour
	}
	return &AccountService{
		provisioner:  provisioner{users: userRepo, profiles: profileRepo, patients: patientRepo, hasher: hasher},
		doctors:      doctorRepo,
		healthRecord: healthRecordRepo,
		appointments: appointmentRepo,
		auditRepo:    auditRepo,
		sessions:     sessions,
		tokens:       tokens,
		mailer:       mailer,
		policy:       engine,
		cfg:          cfg,
		now:          time.Now,
	}
}

// CreateUser provisions a login account and its profile. Only administrators
// may call it. Without a password the account gets an unusable one and a
// reset link is mailed once the transaction has committed.
func (s *AccountService) CreateUser(ctx context.Context, actor policy.Principal, req *models.CreateUserRequest) (*models.User, error) {
	ctx, span := telemetry.Start(ctx, "AccountService.CreateUser", attribute.String("role", string(req.Role)))
	defer span.End()

	if err := policy.RequireRole(actor, models.RoleAdmin, models.RoleSuperAdmin).Err(); err != nil {
		return nil, err
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	user := &models.User{
		Username:  req.Username,
		Email:     strings.TrimSpace(req.Email),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		IsActive:  active,
	}

	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user, req.Password, ""); err != nil {
			return err
		}
		return s.audit(ctx, actor.ActorID(), models.AuditCreateUser, user.Username, map[string]interface{}{
			"role":              string(user.Role),
			"password_provided": req.Password != "",
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("username", user.Username).
		Str("role", string(user.Role)).
		Uint("actor_id", actor.UserID).
		Msg("User provisioned")

	if req.Password == "" {
		s.sendReset(ctx, user)
	}
	return user, nil
}

// CreateAdmin provisions a superadmin from the command line
func (s *AccountService) CreateAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	if strings.TrimSpace(password) == "" {
		return nil, fieldError("password", "This field is required.")
	}
	user := &models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Role:     models.RoleSuperAdmin,
		IsActive: true,
	}
	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user, password, ""); err != nil {
			return err
		}
		return s.audit(ctx, nil, models.AuditCreateUser, user.Username, map[string]interface{}{
			"role":              string(user.Role),
			"password_provided": true,
			"source":            "create_admin_cmd",
		})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateDoctorAccount provisions a doctor login from the command line
func (s *AccountService) CreateDoctorAccount(ctx context.Context, username, email, fullName, specialization, password string) (*models.User, error) {
	first, last := splitName(fullName)
	user := &models.User{
		Username:  strings.TrimSpace(username),
		Email:     strings.TrimSpace(email),
		FirstName: first,
		LastName:  last,
		Role:      models.RoleDoctor,
		IsActive:  true,
	}
	if strings.TrimSpace(specialization) == "" {
		specialization = models.DefaultSpecialization
	}

	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user, password, fullName); err != nil {
			return err
		}
		profile, err := s.profiles.GetDoctorProfile(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := s.profiles.SetSpecialization(ctx, profile.ID, specialization); err != nil {
			return err
		}
		return s.audit(ctx, nil, models.AuditCreateUser, user.Username, map[string]interface{}{
			"role":              string(user.Role),
			"password_provided": password != "",
			"source":            "create_doctor_cmd",
		})
	})
	if err != nil {
		return nil, err
	}

	if password == "" {
		s.sendReset(ctx, user)
	}
	return user, nil
}

// Signup registers a patient with a portal login and starts a session
func (s *AccountService) Signup(ctx context.Context, req *models.PatientAccountRequest) (*Session, error) {
	ctx, span := telemetry.Start(ctx, "AccountService.Signup")
	defer span.End()

	req.Username = strings.TrimSpace(req.Username)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	patient, err := buildPatient(&req.PatientRequest, nil)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = database.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.provisionPatient(ctx, patient, req.Username, req.Password1, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", user.Username).Str("patient_id", patient.PatientID).Msg("Patient signed up")
	return s.startSession(ctx, user)
}

// Login verifies credentials and issues a session
func (s *AccountService) Login(ctx context.Context, req *models.LoginRequest) (*Session, error) {
	ctx, span := telemetry.Start(ctx, "AccountService.Login")
	defer span.End()

	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !s.hasher.Check(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now().UTC()); err != nil {
		log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to record last login")
	}
	return s.startSession(ctx, user)
}

func (s *AccountService) startSession(ctx context.Context, user *models.User) (*Session, error) {
	token, claims, err := s.sessions.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

// Logout revokes the session token for the rest of its lifetime
func (s *AccountService) Logout(ctx context.Context, token string) error {
	claims, err := s.sessions.Parse(ctx, token)
	if err != nil {
		// already invalid, nothing to revoke
		return nil
	}
	return s.sessions.Revoke(ctx, claims)
}

// Authenticate resolves a session token into a principal with its linked
// doctor and patient records
func (s *AccountService) Authenticate(ctx context.Context, token string) (policy.Principal, error) {
	claims, err := s.sessions.Parse(ctx, token)
	if err != nil {
		return policy.Anonymous(), err
	}
	id, err := claims.UserID()
	if err != nil {
		return policy.Anonymous(), err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return policy.Anonymous(), auth.ErrInvalidSession
		}
		return policy.Anonymous(), err
	}
	if !user.IsActive {
		return policy.Anonymous(), auth.ErrInvalidSession
	}
	return s.principalFor(ctx, user)
}

func (s *AccountService) principalFor(ctx context.Context, user *models.User) (policy.Principal, error) {
	p := policy.Principal{
		UserID:        user.ID,
		Username:      user.Username,
		Role:          user.Role,
		Authenticated: true,
	}
	switch user.Role {
	case models.RoleDoctor:
		doctor, err := s.doctors.GetByUserID(ctx, user.ID)
		if err == nil {
			p.DoctorID = &doctor.ID
		} else if !repository.IsNotFound(err) {
			return policy.Anonymous(), err
		}
	case models.RolePatient:
		patient, err := s.patients.GetByUserID(ctx, user.ID)
		if err == nil {
			p.PatientID = &patient.ID
		} else if !repository.IsNotFound(err) {
			return policy.Anonymous(), err
		}
	}
	return p, nil
}

// RequestPasswordReset mails a reset link to every active account registered
// with the address. Unknown addresses succeed silently.
func (s *AccountService) RequestPasswordReset(ctx context.Context, req *models.PasswordResetRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	users, err := s.users.GetActiveByEmail(ctx, req.Email)
	if err != nil {
		return err
	}
	for i := range users {
		s.sendReset(ctx, &users[i])
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password
func (s *AccountService) ConfirmPasswordReset(ctx context.Context, req *models.PasswordResetConfirmRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}

	raw, err := s.tokens.GetDel(ctx, cache.PasswordResetKey(req.Token))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return fieldError("token", "The password reset link was invalid, possibly because it has already been used.")
		}
		return fmt.Errorf("failed to read reset token: %w", err)
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("failed to read reset token: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password1)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, uint(id), hash); err != nil {
		return notFound(err, "user")
	}
	log.Info().Uint64("user_id", id).Msg("Password reset completed")
	return nil
}

// sendReset stores a single-use token and hands the link to the mailer.
// Failures are logged; the caller's work is already committed.
func (s *AccountService) sendReset(ctx context.Context, user *models.User) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	expires := s.now().Add(s.cfg.ResetTTL)

	if err := s.tokens.Set(ctx, cache.PasswordResetKey(token), []byte(strconv.FormatUint(uint64(user.ID), 10)), s.cfg.ResetTTL); err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to store password reset token")
		return
	}

	msg := notify.PasswordReset{
		To:        user.Email,
		Username:  user.Username,
		Token:     token,
		Link:      s.cfg.BaseURL + "/password-reset/confirm?token=" + url.QueryEscape(token),
		ExpiresAt: expires,
	}
	if err := s.mailer.SendPasswordReset(ctx, msg); err != nil {
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to send password reset mail")
	}
}

// DeleteOwnAccount lets a patient remove their login. Their patient record,
// its health records and profile go with it; appointments keep their
// name and email snapshot with the patient link cleared.
func (s *AccountService) DeleteOwnAccount(ctx context.Context, actor policy.Principal) (*DeletionSummary, error) {
	ctx, span := telemetry.Start(ctx, "AccountService.DeleteOwnAccount")
	defer span.End()

	if err := s.policy.Authorize(actor, policy.ResourceAccount, policy.ActionDelete).Err(); err != nil {
		return nil, err
	}

	summary := &DeletionSummary{Target: actor.Username}
	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		patient, err := s.patients.GetByUserID(ctx, actor.UserID)
		switch {
		case err == nil:
			if summary.HealthRecordsDeleted, err = s.healthRecord.DeleteByPatient(ctx, patient.ID); err != nil {
				return err
			}
			if summary.AppointmentsDetached, err = s.appointments.DetachPatient(ctx, patient.ID); err != nil {
				return err
			}
			if err := s.patients.Delete(ctx, patient.ID); err != nil {
				return err
			}
		case !repository.IsNotFound(err):
			return err
		}

		if err := s.profiles.DeleteForUser(ctx, actor.UserID); err != nil {
			return err
		}
		if err := s.users.Delete(ctx, actor.UserID); err != nil {
			return notFound(err, "user")
		}
		return s.audit(ctx, nil, models.AuditSelfDeleteAccount, actor.Username, map[string]interface{}{
			"user_id":                actor.UserID,
			"health_records_deleted": summary.HealthRecordsDeleted,
			"appointments_detached":  summary.AppointmentsDetached,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("username", actor.Username).Int64("health_records_deleted", summary.HealthRecordsDeleted).Msg("Account self-deleted")
	return summary, nil
}

// ListUsers returns login accounts for the provisioning screen
func (s *AccountService) ListUsers(ctx context.Context, actor policy.Principal, limit, offset int) ([]models.User, error) {
	if err := policy.RequireRole(actor, models.RoleAdmin, models.RoleSuperAdmin).Err(); err != nil {
		return nil, err
	}
	return s.users.List(ctx, limit, offset)
}

func (s *AccountService) audit(ctx context.Context, actorID *uint, action, target string, details map[string]interface{}) error {
	return appendAudit(ctx, s.auditRepo, actorID, action, target, details)
}
