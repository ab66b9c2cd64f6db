// Package server sanitizes agent-supplied display names and permission
// tokens before they reach a session record.
package server

import (
	"regexp"
	"strings"
)

// maxNameLength caps sanitized display names.
const maxNameLength = 25

// disallowedNameChars matches everything outside the accepted display-name
// alphabet.
var disallowedNameChars = regexp.MustCompile(`[^a-zA-Z0-9áéíóúÁÉÍÓÚñÑ ]`)

// connectVocabulary is the permission set accepted from connection query
// parameters. It intentionally differs from updateVocabulary; the two paths
// have always used distinct vocabularies and clients depend on both.
var connectVocabulary = map[string]struct{}{
	"1": {}, "2": {}, "3": {}, "4": {},
}

// updateVocabulary is the permission set accepted by the auth_data and
// update_permissions paths.
var updateVocabulary = map[string]struct{}{
	"1": {}, "2": {}, "3": {}, "admin": {},
}

// maxUpdatePermissions caps the capability set on the update_permissions path.
const maxUpdatePermissions = 3

// defaultPermissions returns the capability set assigned when a connection
// supplies none (or only invalid ones).
func defaultPermissions() []string {
	return []string{"2"}
}

// sanitizeName strips a display name to the accepted alphabet, truncates it
// to maxNameLength runes, and trims surrounding whitespace, in that order.
func sanitizeName(name string) string {
	stripped := disallowedNameChars.ReplaceAllString(name, "")
	runes := []rune(stripped)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return strings.TrimSpace(string(runes))
}

// filterConnectPermissions trims the supplied tokens and keeps those in the
// connect-time vocabulary, preserving order. The result may be empty.
func filterConnectPermissions(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if _, ok := connectVocabulary[token]; ok {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// filterUpdatePermissions trims the supplied tokens and keeps those in the
// post-connect vocabulary, preserving order. Unknown tokens are dropped
// silently and no count cap is applied here.
func filterUpdatePermissions(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if _, ok := updateVocabulary[token]; ok {
			filtered = append(filtered, token)
		}
	}
	return filtered
}
