package permission

import "strings"

// PatchOperation is a single JSON Patch operation.
type PatchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Patch is a list of field-level operations submitted against one target.
type Patch struct {
	Operations []PatchOperation
	// Token is a registration token supplied as a request parameter (anonymous password reset).
	Token string
}

// OnlyPaths reports whether the patch is non-empty and every operation targets one of paths.
func (p Patch) OnlyPaths(paths ...string) bool {
	if len(p.Operations) == 0 {
		return false
	}
	for _, op := range p.Operations {
		matched := false
		for _, path := range paths {
			if strings.EqualFold(op.Path, path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
