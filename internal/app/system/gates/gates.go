// Package gates applies route-level authorization to page paths.
//
// The JSON API guards its own routes with auth.RequireSignedIn and
// auth.RequireRole in each feature's routes.go. Page paths (/account,
// /checkout, /admin) have no handlers in this service, but a page server
// mounted behind it must still see the same redirects, so they are gated
// here by prefix.
package gates

import (
	"net/http"
	"strings"

	"github.com/dalemusser/storefront/internal/app/system/auth"
)

// Rule gates every path equal to Prefix or below it. With no Roles any
// signed-in user passes.
type Rule struct {
	Prefix string
	Roles  []string
}

// DefaultRules are the storefront's gated page paths.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/account"},
		{Prefix: "/checkout"},
		{Prefix: "/admin", Roles: []string{"admin"}},
	}
}

// Match returns the first rule covering path.
func Match(rules []Rule, path string) (Rule, bool) {
	for _, rule := range rules {
		p := strings.TrimRight(rule.Prefix, "/")
		if path == p || strings.HasPrefix(path, p+"/") {
			return rule, true
		}
	}
	return Rule{}, false
}

// Pages returns middleware enforcing rules. Unmatched paths pass through.
//
//   - anonymous browser request: 303 to /login?return=...
//   - signed in without a required role: 303 to /
func Pages(sm *auth.SessionManager, rules []Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		signedIn := sm.RequireSignedIn(next)
		byRule := make(map[string]http.Handler, len(rules))
		for _, rule := range rules {
			if len(rule.Roles) == 0 {
				byRule[rule.Prefix] = signedIn
				continue
			}
			byRule[rule.Prefix] = sm.RequireSignedIn(sm.RequireRole(rule.Roles...)(next))
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := Match(rules, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			byRule[rule.Prefix].ServeHTTP(w, r)
		})
	}
}
