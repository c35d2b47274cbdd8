package domain

import "fmt"

// DefaultTenantID is used when neither the request nor the account names a tenant.
const DefaultTenantID = "default"

// TenantType describes how tenant data is isolated in a deployment.
type TenantType string

const (
	TenantSharedSchema TenantType = "SHARED_SCHEMA"
	TenantDedicatedDB  TenantType = "DEDICATED_DB"
	TenantOnPremise    TenantType = "ON_PREMISE"
)

func ParseTenantType(s string) (TenantType, error) {
	switch t := TenantType(s); t {
	case TenantSharedSchema, TenantDedicatedDB, TenantOnPremise:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown tenant type %q", ErrInvalidInput, s)
}

func (t TenantType) DisplayName() string {
	switch t {
	case TenantSharedSchema:
		return "Shared Schema"
	case TenantDedicatedDB:
		return "Dedicated Database"
	case TenantOnPremise:
		return "On-Premise"
	}
	return string(t)
}
