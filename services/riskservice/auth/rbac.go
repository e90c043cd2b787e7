// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package auth

import (
	"context"
	"fmt"

	"github.com/AleutianAI/FlightRisk/pkg/extensions"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Resources and actions checked by the application API.
const (
	ResourcePredictRisk      = "predict_risk"
	ResourceUsers            = "users"
	ResourceIncidents        = "incidents"
	ResourceIncidentComments = "incident_comments"
	ResourceSuggestedAction  = "incident_suggested_action"
	ResourceAssignedAction   = "incident_assigned_action"
	ResourceActionStatus     = "incident_action_status"

	ActionInvoke = "invoke"
	ActionList   = "list"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionExport = "export"
)

// rbacModel matches a role subject exactly against (resource, action).
const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// Permission grants one role one action on one resource type.
type Permission struct {
	Role     extensions.Role
	Resource string
	Action   string
}

// DefaultPolicy is the application's role table.
func DefaultPolicy() []Permission {
	grant := func(resource, action string, roles ...extensions.Role) []Permission {
		out := make([]Permission, len(roles))
		for i, r := range roles {
			out[i] = Permission{Role: r, Resource: resource, Action: action}
		}
		return out
	}

	var p []Permission
	p = append(p, grant(ResourcePredictRisk, ActionInvoke, extensions.RoleAdmin, extensions.RoleAuditor)...)
	p = append(p, grant(ResourceUsers, ActionList, extensions.RoleAdmin)...)
	p = append(p, grant(ResourceUsers, ActionUpdate, extensions.RoleAdmin)...)
	p = append(p, grant(ResourceIncidentComments, ActionCreate, extensions.RoleCrew, extensions.RolePilot)...)
	p = append(p, grant(ResourceSuggestedAction, ActionUpdate, extensions.RolePilot, extensions.RoleAdmin, extensions.RoleAuditor)...)
	p = append(p, grant(ResourceAssignedAction, ActionUpdate, extensions.RoleAdmin, extensions.RoleAuditor)...)
	p = append(p, grant(ResourceActionStatus, ActionUpdate, extensions.RoleGroundStaff, extensions.RoleAdmin, extensions.RoleAuditor)...)
	p = append(p, grant(ResourceIncidents, ActionExport, extensions.RoleAdmin, extensions.RoleAuditor)...)
	return p
}

// RBAC is a casbin-backed extensions.AuthzProvider.
//
// # Thread Safety
//
// Safe for concurrent use (casbin SyncedEnforcer).
type RBAC struct {
	enforcer *casbin.SyncedEnforcer
}

// NewRBAC builds an enforcer loaded with policy.
func NewRBAC(policy []Permission) (*RBAC, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("parse rbac model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	rules := make([][]string, len(policy))
	for i, p := range policy {
		rules[i] = []string{string(p.Role), p.Resource, p.Action}
	}
	if len(rules) > 0 {
		if _, err := e.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("load rbac policy: %w", err)
		}
	}
	return &RBAC{enforcer: e}, nil
}

// Allowed reports whether role may perform action on resource.
func (r *RBAC) Allowed(role extensions.Role, resource, action string) (bool, error) {
	return r.enforcer.Enforce(string(role), resource, action)
}

// Authorize allows the request if any of the user's roles is granted.
func (r *RBAC) Authorize(_ context.Context, req extensions.AuthzRequest) error {
	if req.User == nil {
		return fmt.Errorf("no user: %w", extensions.ErrUnauthorized)
	}
	for _, role := range req.User.Roles {
		ok, err := r.Allowed(role, req.ResourceType, req.Action)
		if err != nil {
			return fmt.Errorf("enforce: %w", err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", req.Action, req.ResourceType, extensions.ErrForbidden)
}

var _ extensions.AuthzProvider = (*RBAC)(nil)
