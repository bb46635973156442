package security

import (
	"fmt"
	"slices"
	"strings"

	"github.com/storefront/identity-api/internal/core/domain"
)

// AccessKind is the requirement a rule places on the caller.
type AccessKind int

const (
	// AccessAuthenticated requires any principal. It is also the outcome
	// when no rule matches.
	AccessAuthenticated AccessKind = iota
	AccessPublic
	AccessRoles
)

// Access is a rule outcome. Roles is only read for AccessRoles.
type Access struct {
	Kind  AccessKind
	Roles []domain.Role
}

var (
	Public        = Access{Kind: AccessPublic}
	Authenticated = Access{Kind: AccessAuthenticated}
)

// RequireRoles allows principals holding any of roles.
func RequireRoles(roles ...domain.Role) Access {
	return Access{Kind: AccessRoles, Roles: roles}
}

// Rule binds a method and path pattern to an access requirement. Method "*"
// matches any method. Pattern segments are literals, ":name" parameters or a
// trailing "*" matching zero or more segments.
type Rule struct {
	Method  string
	Pattern string
	Access  Access
}

// DenyReason classifies a denied decision.
type DenyReason int

const (
	DenyNone DenyReason = iota
	DenyNoIdentity
	DenyInsufficientRole
	DenyNotOwner
)

func (r DenyReason) String() string {
	switch r {
	case DenyNone:
		return "none"
	case DenyNoIdentity:
		return "no_identity"
	case DenyInsufficientRole:
		return "insufficient_role"
	case DenyNotOwner:
		return "not_owner"
	default:
		return "unknown"
	}
}

// Decision is the result of an authorization check.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

var allow = Decision{Allowed: true}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// Err returns the domain error for a denial, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenyInsufficientRole:
		return domain.ErrInsufficientRole
	case DenyNotOwner:
		return domain.ErrNotOwner
	default:
		return domain.ErrNoIdentity
	}
}

type compiledRule struct {
	method   string
	segments []string
	wildcard bool
	literals int
	params   int
	access   Access
}

// Policy evaluates requests against a static rule table. It is built once
// and only read afterwards.
type Policy struct {
	rules []compiledRule
}

// NewPolicy validates and compiles rules.
func NewPolicy(rules []Rule) (*Policy, error) {
	p := &Policy{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		cr, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		p.rules = append(p.rules, cr)
	}
	return p, nil
}

func compileRule(r Rule) (compiledRule, error) {
	if !strings.HasPrefix(r.Pattern, "/") {
		return compiledRule{}, fmt.Errorf("policy: pattern %q must start with /", r.Pattern)
	}
	method := strings.ToUpper(r.Method)
	if method == "" {
		method = "*"
	}
	cr := compiledRule{method: method, access: r.Access}
	segs := splitPath(r.Pattern)
	for i, s := range segs {
		switch {
		case s == "*":
			if i != len(segs)-1 {
				return compiledRule{}, fmt.Errorf("policy: wildcard must be last in %q", r.Pattern)
			}
			cr.wildcard = true
			continue
		case strings.HasPrefix(s, ":"):
			cr.params++
		default:
			cr.literals++
		}
		cr.segments = append(cr.segments, s)
	}
	if r.Access.Kind == AccessRoles {
		if len(r.Access.Roles) == 0 {
			return compiledRule{}, fmt.Errorf("policy: %s %s requires at least one role", method, r.Pattern)
		}
		for _, role := range r.Access.Roles {
			if !role.Valid() {
				return compiledRule{}, fmt.Errorf("policy: unknown role %q in %s %s", role, method, r.Pattern)
			}
		}
	}
	return cr, nil
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func (r compiledRule) matches(method string, segs []string) bool {
	if r.method != "*" && r.method != method {
		return false
	}
	if len(segs) < len(r.segments) || (!r.wildcard && len(segs) != len(r.segments)) {
		return false
	}
	for i, s := range r.segments {
		if strings.HasPrefix(s, ":") {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if s != segs[i] {
			return false
		}
	}
	return true
}

// moreSpecific orders rules: more literal segments, then more parameters,
// then no wildcard, then an explicit method.
func (r compiledRule) moreSpecific(o compiledRule) bool {
	if r.literals != o.literals {
		return r.literals > o.literals
	}
	if r.params != o.params {
		return r.params > o.params
	}
	if r.wildcard != o.wildcard {
		return !r.wildcard
	}
	return r.method != "*" && o.method == "*"
}

// Match returns the access requirement for method and path.
func (p *Policy) Match(method, path string) Access {
	segs := splitPath(path)
	method = strings.ToUpper(method)

	var best *compiledRule
	for i := range p.rules {
		r := &p.rules[i]
		if !r.matches(method, segs) {
			continue
		}
		if best == nil || r.moreSpecific(*best) {
			best = r
		}
	}
	if best == nil {
		return Authenticated
	}
	return best.access
}

// Evaluate decides whether principal (nil for anonymous) may call method path.
func (p *Policy) Evaluate(method, path string, principal *domain.Principal) Decision {
	access := p.Match(method, path)
	switch access.Kind {
	case AccessPublic:
		return allow
	case AccessRoles:
		if principal == nil {
			return deny(DenyNoIdentity)
		}
		if !hasRole(principal.Role, access.Roles) {
			return deny(DenyInsufficientRole)
		}
		return allow
	default:
		if principal == nil {
			return deny(DenyNoIdentity)
		}
		return allow
	}
}

// AuthorizeOwner allows admins and the owner of a resource. Resources with
// no recorded owner are admin-only.
func (p *Policy) AuthorizeOwner(principal *domain.Principal, ownerID string) Decision {
	if principal == nil {
		return deny(DenyNoIdentity)
	}
	switch principal.Role {
	case domain.RoleAdmin:
		return allow
	case domain.RoleUser:
		if ownerID != "" && principal.ID == ownerID {
			return allow
		}
		return deny(DenyNotOwner)
	default:
		return deny(DenyNotOwner)
	}
}

func hasRole(role domain.Role, set []domain.Role) bool {
	switch role {
	case domain.RoleUser, domain.RoleAdmin:
		return slices.Contains(set, role)
	default:
		return false
	}
}
