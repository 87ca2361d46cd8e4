package crdt

import (
	"fmt"
	"strings"
)

// createSubPaths walks parent links from createdAt up to the document
// root, returning path segments in root-to-leaf order (spec.md §4.9's
// create_path/create_sub_paths).
func (r *Root) createSubPaths(createdAt Ticket) ([]string, error) {
	entry, ok := r.elements[createdAt]
	if !ok {
		return nil, fmt.Errorf("crdt: no element registered for %s: %w", createdAt, ErrInvalidArgument)
	}
	if createdAt == r.object.CreatedAt() {
		return []string{"$"}, nil
	}
	parentSegs, err := r.createSubPaths(entry.parentCreatedAt)
	if err != nil {
		return nil, err
	}
	return append(parentSegs, escapePathSegment(entry.pathSegment)), nil
}

// CreatePath renders createdAt's location as a "$.a.b.c"-style path.
func (r *Root) CreatePath(createdAt Ticket) (string, error) {
	segs, err := r.createSubPaths(createdAt)
	if err != nil {
		return "", err
	}
	return strings.Join(segs, ""), nil
}

// escapePathSegment escapes "." and "\" in a raw key/index so it can be
// joined unambiguously into a dotted path (spec.md §4.9's "escaped by
// the parent's own convention").
func escapePathSegment(seg string) string {
	var sb strings.Builder
	sb.WriteByte('.')
	for _, r := range seg {
		if r == '.' || r == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
