// Package rbac maps roles to the capabilities they hold and gates HTTP
// routes on them.
package rbac

import (
	"sort"

	"github.com/odyssey-erp/vcards/internal/shared"
)

// Capability names an action on a resource.
type Capability struct {
	Resource shared.Resource `json:"resource"`
	Action   shared.Action   `json:"action"`
}

// Grant gives Role one capability.
type Grant struct {
	Role     shared.Role     `json:"role"`
	Resource shared.Resource `json:"resource"`
	Action   shared.Action   `json:"action"`
}

// Matrix is an immutable role to capability table. Anything not granted is
// denied.
type Matrix struct {
	grants map[shared.Role]map[Capability]struct{}
}

// NewMatrix builds a Matrix from grants. Grants naming unknown roles are
// ignored.
func NewMatrix(grants ...Grant) *Matrix {
	m := &Matrix{grants: make(map[shared.Role]map[Capability]struct{})}
	for _, g := range grants {
		if !g.Role.Valid() {
			continue
		}
		caps, ok := m.grants[g.Role]
		if !ok {
			caps = make(map[Capability]struct{})
			m.grants[g.Role] = caps
		}
		caps[Capability{Resource: g.Resource, Action: g.Action}] = struct{}{}
	}
	return m
}

// Allows reports whether role may perform action on resource.
func (m *Matrix) Allows(role shared.Role, resource shared.Resource, action shared.Action) bool {
	if m == nil {
		return false
	}
	_, ok := m.grants[role][Capability{Resource: resource, Action: action}]
	return ok
}

// Capabilities lists what role may do, sorted by resource then action.
func (m *Matrix) Capabilities(role shared.Role) []Capability {
	if m == nil {
		return nil
	}
	caps := make([]Capability, 0, len(m.grants[role]))
	for c := range m.grants[role] {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Resource != caps[j].Resource {
			return caps[i].Resource < caps[j].Resource
		}
		return caps[i].Action < caps[j].Action
	})
	return caps
}

// Grants lists every grant, sorted by role then capability.
func (m *Matrix) Grants() []Grant {
	var out []Grant
	for _, role := range shared.Roles() {
		for _, c := range m.Capabilities(role) {
			out = append(out, Grant{Role: role, Resource: c.Resource, Action: c.Action})
		}
	}
	return out
}

// DefaultMatrix returns the built-in permission table.
func DefaultMatrix() *Matrix {
	var grants []Grant
	add := func(role shared.Role, resource shared.Resource, actions ...shared.Action) {
		for _, a := range actions {
			grants = append(grants, Grant{Role: role, Resource: resource, Action: a})
		}
	}

	add(shared.RoleAdmin, shared.ResourceUsers, shared.ActionShowAll, shared.ActionDeleteAny, shared.ActionDisableUser, shared.ActionManageRole)
	add(shared.RoleAdmin, shared.ResourceCards, shared.ActionAddMy, shared.ActionShowMy, shared.ActionDeleteMy, shared.ActionUnfreezeMy, shared.ActionShowAll, shared.ActionDeleteAny, shared.ActionUnfreezeAny)
	add(shared.RoleAdmin, shared.ResourceTransactions, shared.ActionMakePayment, shared.ActionShowForMyCard, shared.ActionShowAll, shared.ActionDeleteAny)
	add(shared.RoleAdmin, shared.ResourceAccount, shared.ActionShowInfo, shared.ActionChangeInfo, shared.ActionDeleteMy, shared.ActionLogout)
	add(shared.RoleAdmin, shared.ResourceCheck, shared.ActionHealthCheck)

	add(shared.RoleManager, shared.ResourceUsers, shared.ActionShowAll)
	add(shared.RoleManager, shared.ResourceCards, shared.ActionAddMy, shared.ActionShowMy, shared.ActionDeleteMy, shared.ActionUnfreezeMy, shared.ActionShowAll)
	add(shared.RoleManager, shared.ResourceTransactions, shared.ActionMakePayment, shared.ActionShowForMyCard, shared.ActionShowAll)
	add(shared.RoleManager, shared.ResourceAccount, shared.ActionShowInfo, shared.ActionChangeInfo, shared.ActionDeleteMy, shared.ActionLogout)

	add(shared.RoleUser, shared.ResourceCards, shared.ActionAddMy, shared.ActionShowMy, shared.ActionDeleteMy, shared.ActionUnfreezeMy)
	add(shared.RoleUser, shared.ResourceTransactions, shared.ActionMakePayment, shared.ActionShowForMyCard)
	add(shared.RoleUser, shared.ResourceAccount, shared.ActionShowInfo, shared.ActionChangeInfo, shared.ActionDeleteMy, shared.ActionLogout)

	return NewMatrix(grants...)
}
