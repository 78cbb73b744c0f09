package tunnel

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

/* Tunnel is the admission configuration of one API key
 * Path patterns are regular expressions matched against the whole
 * normalized path (leading slash, no query, no dot segments)
 */
type Tunnel struct {
	APIKey         string
	Name           string
	AllowedMethods []string
	AllowedPaths   []*regexp.Regexp
	BlockedPaths   []*regexp.Regexp
}

// New builds a tunnel, compiling its path patterns
func New(apiKey, name string, methods, allowed, blocked []string) (*Tunnel, error) {
	t := &Tunnel{
		APIKey: apiKey,
		Name:   name,
	}
	for _, m := range methods {
		t.AllowedMethods = append(t.AllowedMethods, strings.ToUpper(strings.TrimSpace(m)))
	}

	var err error
	if t.AllowedPaths, err = compilePatterns(allowed); err != nil {
		return nil, fmt.Errorf("compiling allowed paths for %s: %w", name, err)
	}
	if t.BlockedPaths, err = compilePatterns(blocked); err != nil {
		return nil, fmt.Errorf("compiling blocked paths for %s: %w", name, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the tunnel configuration is valid
func (t *Tunnel) Validate() error {
	if t.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty for tunnel %q", t.Name)
	}
	for _, m := range t.AllowedMethods {
		if !validMethod(m) {
			return fmt.Errorf("invalid method %q for tunnel %q", m, t.Name)
		}
	}
	return nil
}

// AllowsMethod reports whether method passes the method allow-list
func (t *Tunnel) AllowsMethod(method string) bool {
	if len(t.AllowedMethods) == 0 {
		return true
	}
	method = strings.ToUpper(method)
	for _, m := range t.AllowedMethods {
		if m == method {
			return true
		}
	}
	return false
}

// Blocks reports whether path matches any blocked pattern
func (t *Tunnel) Blocks(path string) bool {
	return matchAny(t.BlockedPaths, path)
}

// Allows reports whether path passes the allow-list; an empty list allows all
func (t *Tunnel) Allows(path string) bool {
	if len(t.AllowedPaths) == 0 {
		return true
	}
	return matchAny(t.AllowedPaths, path)
}

/* NormalizePath gives p exactly one leading slash, strips any query and
 * resolves percent-encoding and dot segments, so patterns see the path the
 * target will serve
 */
func NormalizePath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if decoded, err := url.PathUnescape(p); err == nil {
		p = decoded
	}
	cleaned := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, path string) bool {
	for _, re := range patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

var methods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "OPTIONS": true, "CONNECT": true, "TRACE": true,
}

func validMethod(m string) bool {
	return methods[m]
}
