package storage

import (
	"fmt"
	"strings"
)

// AttrSeparator separates an object path from an attribute name, as in
// "/group/dataset@units".
const AttrSeparator = "@"

// ParseAttrPath splits "object@name" at the last separator. The object
// part is cleaned, so "@units" names an attribute of the root group.
func ParseAttrPath(path string) (objectPath, attrName string, err error) {
	i := strings.LastIndex(path, AttrSeparator)
	switch {
	case path == "":
		return "", "", fmt.Errorf("empty attribute path")
	case i < 0:
		return "", "", fmt.Errorf("attribute path %q has no %q", path, AttrSeparator)
	case i == len(path)-1:
		return "", "", fmt.Errorf("attribute path %q has an empty name", path)
	}
	return CleanPath(path[:i]), path[i+1:], nil
}

// IsAttrPath reports whether path names an attribute.
func IsAttrPath(path string) bool {
	return strings.Contains(path, AttrSeparator)
}

// JoinAttrPath is the inverse of ParseAttrPath for a clean object path.
func JoinAttrPath(objectPath, attrName string) string {
	return objectPath + AttrSeparator + attrName
}

// SplitPath returns the non-empty components of a slash-separated path.
func SplitPath(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// CleanPath returns path as an absolute path with no empty components.
func CleanPath(path string) string {
	return "/" + strings.Join(SplitPath(path), "/")
}
