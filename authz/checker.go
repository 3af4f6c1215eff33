package authz

import "strings"

// Checker reports whether subject holds permission.
type Checker interface {
	HasPermission(subject string, permission string) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(subject string, permission string) bool

// HasPermission implements Checker.
func (f CheckerFunc) HasPermission(subject string, permission string) bool {
	return f(subject, permission)
}

// Scope treats subject as a space-separated OAuth scope string whose
// entries are permission patterns.
var Scope Checker = CheckerFunc(func(scope string, permission string) bool {
	return MatchAny(strings.Fields(scope), permission)
})

// ToolPermission is the permission a tools/call of name requires.
func ToolPermission(name string) string {
	return "tools:" + name
}

// Resource permissions.
const (
	ResourcesList = "resources:list"
	ResourcesRead = "resources:read"
)
