package policy

import "github.com/educationerp/erp-auth/internal/core/domain"

// Default is the route table of the ERP API.
func Default() *Policy {
	const (
		sa = domain.RoleSuperAdmin
		ia = domain.RoleInstitutionAdmin
		bm = domain.RoleBranchManager
		cm = domain.RoleCourseManager
		ac = domain.RoleAccountant
		rv = domain.RoleReportViewer
		te = domain.RoleTeacher
		st = domain.RoleStudent
		pa = domain.RoleParent
	)

	rules := Public(
		"/",
		"/api",
		"/api/auth/**",
		"/api/public/**",
		"/health/**",
		"/metrics",
		"/swagger/**",
	)
	rules = append(rules,
		Allow("/api/admin/**", sa),
		Authenticated("/api/users/me/**"),
		Allow("/api/users/**", sa, ia),
		Allow("/api/institution/**", sa, ia),
		Allow("/api/branch/**", sa, ia, bm),
		Allow("/api/course/**", sa, ia, bm, cm),
		Allow("/api/teacher/**", sa, ia, bm, te),
		Allow("/api/student/**", st, pa, sa, ia, bm, te),
		Allow("/api/parent/**", pa, sa, ia, bm),
		Allow("/api/payment/**", sa, ia, bm, ac),
		Allow("/api/reports/**", sa, ia, bm, rv, ac),
	)
	return MustNew(rules...)
}
