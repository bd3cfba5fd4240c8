package core

import "strings"

// AccessList is a static allow-list of chat handles. Matching is
// case-sensitive; a leading "@" is ignored on both sides.
type AccessList struct {
	handles map[string]bool
}

// NewAccessList builds an AccessList from configured handles.
func NewAccessList(handles []string) *AccessList {
	al := &AccessList{handles: make(map[string]bool, len(handles))}
	for _, h := range handles {
		if h = normalizeHandle(h); h != "" {
			al.handles[h] = true
		}
	}
	return al
}

// Allows reports whether username is on the list.
func (al *AccessList) Allows(username string) bool {
	if al == nil {
		return false
	}
	username = normalizeHandle(username)
	return username != "" && al.handles[username]
}

func normalizeHandle(h string) string {
	return strings.TrimPrefix(strings.TrimSpace(h), "@")
}
