package domain

import (
	"fmt"
	"strings"
)

// ConditionOp is the operator of a guard condition.
type ConditionOp string

const (
	OpHas              ConditionOp = "has"
	OpMissing          ConditionOp = "missing"
	OpEquals           ConditionOp = "eq"
	OpNotEquals        ConditionOp = "ne"
	OpAuthenticated    ConditionOp = "authenticated"
	OpNotAuthenticated ConditionOp = "anonymous"
)

// Condition is a guard evaluated against the session context.
//
// Grammar:
//
//	has:<key>         the key is present in answers or metadata
//	!has:<key>        the key is absent
//	<key>==<value>    the answer equals value (case-insensitive)
//	<key>!=<value>    the answer differs from value
//	authenticated     the session is bound to a known user
//	!authenticated    the session is anonymous
type Condition struct {
	Op    ConditionOp `json:"op"`
	Key   string      `json:"key,omitempty"`
	Value string      `json:"value,omitempty"`
	Raw   string      `json:"raw"`
}

// ParseCondition parses a guard expression.
func ParseCondition(raw string) (Condition, error) {
	expr := strings.TrimSpace(raw)
	c := Condition{Raw: expr}

	switch {
	case expr == "authenticated":
		c.Op = OpAuthenticated
	case expr == "!authenticated":
		c.Op = OpNotAuthenticated
	case strings.HasPrefix(expr, "!has:"):
		c.Op, c.Key = OpMissing, strings.TrimSpace(strings.TrimPrefix(expr, "!has:"))
	case strings.HasPrefix(expr, "has:"):
		c.Op, c.Key = OpHas, strings.TrimSpace(strings.TrimPrefix(expr, "has:"))
	case strings.Contains(expr, "!="):
		k, v, _ := strings.Cut(expr, "!=")
		c.Op, c.Key, c.Value = OpNotEquals, strings.TrimSpace(k), strings.TrimSpace(v)
	case strings.Contains(expr, "=="):
		k, v, _ := strings.Cut(expr, "==")
		c.Op, c.Key, c.Value = OpEquals, strings.TrimSpace(k), strings.TrimSpace(v)
	default:
		return Condition{}, fmt.Errorf("guard %q: unsupported expression", raw)
	}

	if (c.Op != OpAuthenticated && c.Op != OpNotAuthenticated) && c.Key == "" {
		return Condition{}, fmt.Errorf("guard %q: missing key", raw)
	}
	return c, nil
}

// Eval evaluates the condition. A nil session only satisfies negative guards.
func (c Condition) Eval(s *Session) bool {
	switch c.Op {
	case OpAuthenticated:
		return s != nil && s.Authenticated
	case OpNotAuthenticated:
		return s == nil || !s.Authenticated
	case OpHas:
		return s != nil && s.Has(c.Key)
	case OpMissing:
		return s == nil || !s.Has(c.Key)
	case OpEquals:
		v, ok := s.Lookup(c.Key)
		return ok && strings.EqualFold(v, c.Value)
	case OpNotEquals:
		v, _ := s.Lookup(c.Key)
		return !strings.EqualFold(v, c.Value)
	}
	return false
}

func (c Condition) String() string {
	return c.Raw
}
