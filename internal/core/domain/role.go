package domain

import (
	"fmt"
	"strings"
)

// Role is the access level of an account. The set is closed.
type Role string

const (
	RoleSuperAdmin       Role = "SUPER_ADMIN"
	RoleInstitutionAdmin Role = "INSTITUTION_ADMIN"
	RoleBranchManager    Role = "BRANCH_MANAGER"
	RoleCourseManager    Role = "COURSE_MANAGER"
	RoleAccountant       Role = "ACCOUNTANT"
	RoleReportViewer     Role = "REPORT_VIEWER"
	RoleTeacher          Role = "TEACHER"
	RoleStudent          Role = "STUDENT"
	RoleParent           Role = "PARENT"
)

type roleInfo struct {
	displayName string
	description string
	readOnly    bool
}

var roles = map[Role]roleInfo{
	RoleSuperAdmin:       {"Super Administrator", "Full system access", false},
	RoleInstitutionAdmin: {"Institution Administrator", "Institution-level management", false},
	RoleBranchManager:    {"Branch Manager", "Branch-level management", false},
	RoleCourseManager:    {"Course Manager", "Course and curriculum management", false},
	RoleAccountant:       {"Accountant", "Financial operations and reporting", false},
	RoleReportViewer:     {"Report Viewer", "Report access only", true},
	RoleTeacher:          {"Teacher", "Teaching and student evaluation", false},
	RoleStudent:          {"Student", "Student portal access", false},
	RoleParent:           {"Parent", "Parent portal access", true},
}

// AllRoles returns every role in declaration order.
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin, RoleInstitutionAdmin, RoleBranchManager, RoleCourseManager,
		RoleAccountant, RoleReportViewer, RoleTeacher, RoleStudent, RoleParent,
	}
}

// ParseRole accepts the canonical name in any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

// ReadOnly reports whether the role can only view data. Read-only roles get
// longer-lived sessions.
func (r Role) ReadOnly() bool {
	return roles[r].readOnly
}

func (r Role) DisplayName() string { return roles[r].displayName }

func (r Role) Description() string { return roles[r].description }

func (r Role) String() string { return string(r) }
