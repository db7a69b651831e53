package middleware

import (
	"net/http"
	"strings"

	"elbiefit/pkg/common"
)

// ThemeCookie holds the user's chosen UI theme
const ThemeCookie = "theme"

// ThemeOptions configures Theme
type ThemeOptions struct {
	Default          string
	Themes           []string
	ExcludedPrefixes []string
}

// Theme puts the request's UI theme into the context. Excluded paths and
// unknown or missing cookie values get the default.
func Theme(opts ThemeOptions) func(next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(opts.Themes))
	for _, t := range opts.Themes {
		allowed[t] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			theme := opts.Default
			if !hasPrefix(r.URL.Path, opts.ExcludedPrefixes) {
				if c, err := r.Cookie(ThemeCookie); err == nil {
					if _, ok := allowed[c.Value]; ok {
						theme = c.Value
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(common.WithTheme(r.Context(), theme)))
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
