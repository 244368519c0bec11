package mcptools

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const maxExposedNameLen = 64

// exposedName builds the registry name for a remote tool:
// `<server>__<tool>`, both parts sanitized, capped at 64 runes with a short
// hash suffix when the cap forces a truncation. The suffix keeps long names
// from colliding after the cut.
func exposedName(server, original string) string {
	server = sanitize(server)
	original = sanitize(original)
	if server == "" {
		server = "mcp"
	}
	if original == "" {
		original = "tool"
	}
	name := server + "__" + original
	if len(name) <= maxExposedNameLen {
		return name
	}
	sum := sha1.Sum([]byte(name))
	suffix := hex.EncodeToString(sum[:4])
	cut := maxExposedNameLen - len(suffix) - 2
	name = strings.Trim(name[:cut], "_")
	return name + "__" + suffix
}

// sanitize lowercases and collapses every run of disallowed characters into a
// single underscore.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			pendingSep = false
			continue
		}
		if !pendingSep {
			b.WriteByte('_')
			pendingSep = true
		}
	}
	return strings.Trim(b.String(), "_")
}
