package domain

import (
	"path"
	"strings"
)

// ingestPrefixes are temporary file name prefixes attached by the upload
// pipeline. They are stripped before any permission check so that a policy
// granting "report.pdf" also covers "tmp_report.pdf".
var ingestPrefixes = []string{"tmp_", "upload_"}

// AccessPolicy is the per-user rule set determining which source files may
// be returned. Either unrestricted (full access) or an allow-set of
// normalized file names. The engine only consults it, never mutates it.
type AccessPolicy struct {
	unrestricted bool
	allowed      map[string]struct{}
}

// Unrestricted returns a policy that passes every file.
func Unrestricted() AccessPolicy {
	return AccessPolicy{unrestricted: true}
}

// AllowFiles returns a policy passing only the given files.
// Names are normalized on construction.
func AllowFiles(names []string) AccessPolicy {
	allowed := make(map[string]struct{}, len(names))
	for _, n := range names {
		if norm := NormalizeFileName(n); norm != "" {
			allowed[norm] = struct{}{}
		}
	}
	return AccessPolicy{allowed: allowed}
}

// IsUnrestricted reports whether the policy passes everything.
func (p AccessPolicy) IsUnrestricted() bool { return p.unrestricted }

// IsEmpty reports whether the policy allows nothing at all.
func (p AccessPolicy) IsEmpty() bool {
	return !p.unrestricted && len(p.allowed) == 0
}

// Allows reports whether the given source file name passes the policy.
// An empty name never passes: a candidate whose origin cannot be resolved
// is dropped, not leaked.
func (p AccessPolicy) Allows(name string) bool {
	norm := NormalizeFileName(name)
	if norm == "" {
		return false
	}
	if p.unrestricted {
		return true
	}
	_, ok := p.allowed[norm]
	return ok
}

// NormalizeFileName reduces a stored source path to a canonical comparison
// key: forward slashes, base name only, ingestion prefixes stripped,
// lowercased.
func NormalizeFileName(name string) string {
	return strings.ToLower(DisplayFileName(name))
}

// DisplayFileName reduces a stored source path to the user-facing file name,
// preserving case.
func DisplayFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	name = path.Base(name)
	if name == "." || name == "/" {
		return ""
	}
	for _, prefix := range ingestPrefixes {
		if rest, ok := strings.CutPrefix(name, prefix); ok && rest != "" {
			name = rest
			break
		}
	}
	return name
}
