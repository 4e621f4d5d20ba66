package services

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/common"
)

// Operation names a facade operation for role checks.
type Operation string

const (
	OpReport    Operation = "issues:report"
	OpList      Operation = "issues:list"
	OpUpvote    Operation = "issues:upvote"
	OpSubscribe Operation = "issues:subscribe"
	OpAnalytics Operation = "issues:analytics"
	OpAssign    Operation = "issues:assign"
	OpUpdate    Operation = "issues:update"
	OpResolve   Operation = "issues:resolve"
)

// Authorizer decides whether role may run op. A nil error allows it.
type Authorizer interface {
	Authorize(role models.Role, op Operation) error
}

const roleModel = `
[request_definition]
r = sub, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.act == "*" || r.act == p.act)
`

// CasbinAuthorizer enforces the role policy: citizens report, read,
// upvote and watch; admins inherit that and may run everything else.
type CasbinAuthorizer struct {
	enforcer *casbin.Enforcer
}

func NewCasbinAuthorizer() (*CasbinAuthorizer, error) {
	m, err := model.NewModelFromString(roleModel)
	if err != nil {
		return nil, fmt.Errorf("casbin model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("casbin enforcer: %w", err)
	}

	citizen, admin := string(models.RoleCitizen), string(models.RoleAdmin)
	for _, op := range []Operation{OpReport, OpList, OpUpvote, OpSubscribe, OpAnalytics} {
		if _, err := e.AddPolicy(citizen, string(op)); err != nil {
			return nil, err
		}
	}
	if _, err := e.AddPolicy(admin, "*"); err != nil {
		return nil, err
	}
	if _, err := e.AddGroupingPolicy(admin, citizen); err != nil {
		return nil, err
	}

	return &CasbinAuthorizer{enforcer: e}, nil
}

func (c *CasbinAuthorizer) Authorize(role models.Role, op Operation) error {
	ok, err := c.enforcer.Enforce(string(role), string(op))
	if err != nil {
		return fmt.Errorf("authorize %s: %w", op, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s may not %s", common.ErrForbidden, role, op)
	}
	return nil
}
