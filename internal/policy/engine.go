// Package policy decides what an authenticated identity may see and change.
//
// A casbin role matrix answers "may this role perform this action on this
// kind of resource at all"; record-level rules then narrow the answer to a
// scope (for lists) or to an allow/forbidden/not-found outcome (for one
// record). Doctors asking for a patient they do not treat are told
// Forbidden; patients asking for someone else's record are told NotFound so
// that existence is never confirmed.
package policy

import (
	"fmt"

	casbin "github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/otcheredev/hospital-records/internal/models"
	"github.com/otcheredev/hospital-records/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

// roleAuthenticated is the group every concrete role inherits from
const roleAuthenticated = "authenticated"

type permission struct {
	sub string
	obj Resource
	act Action
}

func grant(sub string, obj Resource, acts ...Action) []permission {
	out := make([]permission, 0, len(acts))
	for _, a := range acts {
		out = append(out, permission{sub: sub, obj: obj, act: a})
	}
	return out
}

func defaultPermissions() []permission {
	var ps []permission
	ps = append(ps, grant(roleAuthenticated, ResourceDepartment, ActionList, ActionView)...)
	ps = append(ps, grant(roleAuthenticated, ResourceDoctor, ActionList, ActionView)...)

	analyst := string(models.RoleAnalyst)
	ps = append(ps, grant(analyst, ResourcePatient, ActionList, ActionView)...)
	ps = append(ps, grant(analyst, ResourceHealthRecord, ActionList, ActionView)...)
	ps = append(ps, grant(analyst, ResourceAppointment, ActionList, ActionView)...)
	ps = append(ps, grant(analyst, ResourceDashboard, ActionView)...)

	doctor := string(models.RoleDoctor)
	ps = append(ps, grant(doctor, ResourcePatient, ActionList, ActionView)...)
	ps = append(ps, grant(doctor, ResourceHealthRecord, ActionList, ActionView, ActionCreate)...)
	ps = append(ps, grant(doctor, ResourceAppointment, ActionList, ActionView)...)

	patient := string(models.RolePatient)
	ps = append(ps, grant(patient, ResourcePatient, ActionList, ActionView, ActionUpdate)...)
	ps = append(ps, grant(patient, ResourceHealthRecord, ActionList, ActionView)...)
	ps = append(ps, grant(patient, ResourceAppointment, ActionList, ActionView, ActionCreate)...)
	ps = append(ps, grant(patient, ResourceAccount, ActionDelete)...)

	// staff manage every resource except the self-service account, which
	// belongs to patients alone
	for _, obj := range staffResources {
		ps = append(ps, permission{sub: string(models.RoleAdmin), obj: obj, act: "*"})
	}
	return ps
}

var staffResources = []Resource{
	ResourceDepartment,
	ResourceDoctor,
	ResourcePatient,
	ResourceHealthRecord,
	ResourceAppointment,
	ResourceUser,
	ResourceDashboard,
	ResourceAuditLog,
}

// Engine evaluates access decisions
type Engine struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEngine builds the engine with the built-in role matrix
func NewEngine() (*Engine, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	groupings := [][]string{
		{string(models.RoleSuperAdmin), string(models.RoleAdmin)},
		{string(models.RoleAdmin), roleAuthenticated},
		{string(models.RoleDoctor), roleAuthenticated},
		{string(models.RolePatient), roleAuthenticated},
		{string(models.RoleAnalyst), roleAuthenticated},
	}
	if _, err := e.AddGroupingPolicies(groupings); err != nil {
		return nil, fmt.Errorf("failed to add role groupings: %w", err)
	}

	perms := defaultPermissions()
	rules := make([][]string, 0, len(perms))
	for _, p := range perms {
		rules = append(rules, []string{p.sub, string(p.obj), string(p.act)})
	}
	if _, err := e.AddPolicies(rules); err != nil {
		return nil, fmt.Errorf("failed to add permissions: %w", err)
	}

	return &Engine{enforcer: e}, nil
}

// MustNewEngine is NewEngine for wiring code where the built-in matrix cannot fail
func MustNewEngine() *Engine {
	e, err := NewEngine()
	if err != nil {
		panic(err)
	}
	return e
}

// Can answers the role-matrix question only, without scoping
func (e *Engine) Can(role models.Role, resource Resource, action Action) bool {
	ok, err := e.enforcer.Enforce(string(role), string(resource), string(action))
	if err != nil {
		log.Error().Err(err).Str("role", string(role)).Msg("Policy enforcement failed")
		return false
	}
	return ok
}

// Authorize decides whether p may perform action on resource and, when
// allowed, which rows a list query must be restricted to.
func (e *Engine) Authorize(p Principal, resource Resource, action Action) Decision {
	d := e.authorize(p, resource, action)
	record(p, resource, action, d)
	return d
}

func (e *Engine) authorize(p Principal, resource Resource, action Action) Decision {
	if !p.Authenticated {
		return Decision{Effect: Unauthenticated, Reason: "login required"}
	}
	if !e.Can(p.Role, resource, action) {
		return Decision{Effect: Forbidden, Reason: fmt.Sprintf("role %s may not %s %s", p.Role, action, resource)}
	}
	return Decision{Effect: Allow, Scope: scopeFor(p, resource)}
}

func scopeFor(p Principal, resource Resource) Scope {
	switch resource {
	case ResourcePatient, ResourceHealthRecord, ResourceAppointment:
	default:
		return Scope{Kind: ScopeAll}
	}

	switch p.Role {
	case models.RoleAdmin, models.RoleSuperAdmin, models.RoleAnalyst:
		return Scope{Kind: ScopeAll}
	case models.RoleDoctor:
		if p.DoctorID == nil {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeDoctor, DoctorID: *p.DoctorID}
	case models.RolePatient:
		if p.PatientID == nil {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopePatient, PatientID: *p.PatientID}
	default:
		return Scope{Kind: ScopeNone}
	}
}

// outOfScope is the denial for a concrete record outside the caller's scope
func outOfScope(p Principal, reason string) Decision {
	if p.Role == models.RolePatient {
		return Decision{Effect: NotFound, Reason: reason}
	}
	return Decision{Effect: Forbidden, Reason: reason}
}

// Patient decides access to one patient record
func (e *Engine) Patient(p Principal, action Action, f PatientFacts) Decision {
	d := e.patient(p, action, f)
	record(p, ResourcePatient, action, d)
	return d
}

func (e *Engine) patient(p Principal, action Action, f PatientFacts) Decision {
	d := e.authorize(p, ResourcePatient, action)
	if !d.Allowed() {
		return d
	}
	switch d.Scope.Kind {
	case ScopeAll:
		return d
	case ScopeDoctor:
		if f.Treats {
			return d
		}
		return outOfScope(p, "doctor has no health record with this patient")
	case ScopePatient:
		if f.PatientID == d.Scope.PatientID {
			return d
		}
		return outOfScope(p, "not the caller's patient record")
	default:
		return outOfScope(p, "no linked clinical record")
	}
}

// HealthRecord decides access to one health record. For create, f describes
// the record about to be written.
func (e *Engine) HealthRecord(p Principal, action Action, f HealthRecordFacts) Decision {
	d := e.healthRecord(p, action, f)
	record(p, ResourceHealthRecord, action, d)
	return d
}

func (e *Engine) healthRecord(p Principal, action Action, f HealthRecordFacts) Decision {
	d := e.authorize(p, ResourceHealthRecord, action)
	if !d.Allowed() {
		return d
	}
	switch d.Scope.Kind {
	case ScopeAll:
		return d
	case ScopeDoctor:
		// a doctor may open a record for any patient; it is authored as themselves
		if action == ActionCreate || f.Treats || f.DoctorID == d.Scope.DoctorID {
			return d
		}
		return outOfScope(p, "doctor has no health record with this patient")
	case ScopePatient:
		if f.PatientID == d.Scope.PatientID {
			return d
		}
		return outOfScope(p, "not the caller's health record")
	default:
		return outOfScope(p, "no linked clinical record")
	}
}

// Appointment decides access to one appointment. For create, f describes the
// booking about to be written.
func (e *Engine) Appointment(p Principal, action Action, f AppointmentFacts) Decision {
	d := e.appointment(p, action, f)
	record(p, ResourceAppointment, action, d)
	return d
}

func (e *Engine) appointment(p Principal, action Action, f AppointmentFacts) Decision {
	d := e.authorize(p, ResourceAppointment, action)
	if !d.Allowed() {
		return d
	}
	switch d.Scope.Kind {
	case ScopeAll:
		return d
	case ScopeDoctor:
		if f.DoctorID == d.Scope.DoctorID {
			return d
		}
		return outOfScope(p, "appointment belongs to another doctor")
	case ScopePatient:
		if f.PatientID != nil && *f.PatientID == d.Scope.PatientID {
			return d
		}
		return outOfScope(p, "appointment belongs to another patient")
	default:
		return outOfScope(p, "no linked clinical record")
	}
}

// RequireRole is the single predicate guarding role-gated operations:
// Unauthenticated for anonymous callers, Forbidden for any other role.
func RequireRole(p Principal, roles ...models.Role) Decision {
	if !p.Authenticated {
		return Decision{Effect: Unauthenticated, Reason: "login required"}
	}
	for _, r := range roles {
		if p.Role == r {
			return Decision{Effect: Allow, Scope: Scope{Kind: ScopeAll}}
		}
	}
	return Decision{Effect: Forbidden, Reason: fmt.Sprintf("role %s is not permitted", p.Role)}
}

func record(p Principal, resource Resource, action Action, d Decision) {
	role := string(p.Role)
	if !p.Authenticated {
		role = "anonymous"
	}
	metrics.PolicyDecisions.WithLabelValues(role, string(resource), string(action), d.Effect.String()).Inc()

	if !d.Allowed() {
		log.Debug().
			Uint("user_id", p.UserID).
			Str("role", role).
			Str("resource", string(resource)).
			Str("action", string(action)).
			Str("effect", d.Effect.String()).
			Str("reason", d.Reason).
			Msg("Access denied")
	}
}
