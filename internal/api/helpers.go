package api

import "strings"

// mailboxIDFromPath extracts the mailbox id from a path of the form
// /api/v1/mailboxes/{id}<suffix>. Returns "" when the path does not match.
func mailboxIDFromPath(path, suffix string) string {
	rest, ok := strings.CutPrefix(path, "/api/v1/mailboxes/")
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, suffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
