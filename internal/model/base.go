package model

import (
	"strings"
)

// Role identifies a clinic dashboard. Tasks and notifications are routed by role.
type Role string

const (
	RoleReception       Role = "RECEPTION"
	RoleTriage          Role = "TRIAGE"
	RoleDoctor          Role = "DOCTOR"
	RoleLaboratory      Role = "LABORATORY"
	RolePharmacy        Role = "PHARMACY"
	RoleStylist         Role = "STYLIST"
	RoleHospitalization Role = "HOSPITALIZATION"
	RoleAdmin           Role = "ADMIN"
)

// Roles lists every dashboard role in display order.
var Roles = []Role{
	RoleReception,
	RoleTriage,
	RoleDoctor,
	RoleLaboratory,
	RolePharmacy,
	RoleStylist,
	RoleHospitalization,
	RoleAdmin,
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Rank orders priorities for dashboards; higher is more pressing.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}

// Actor is the identity supplied by the identity provider for every operation.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role Role   `json:"role,omitempty"`
}

func (a Actor) String() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}

// SystemActor is used by background workers.
var SystemActor = Actor{ID: "system", Name: "system", Role: RoleAdmin}
