package util

import "strings"

// IsString returns true if the given value is a string or a non-nil *string
func IsString(value interface{}) bool {
	switch v := value.(type) {
	case string:
		return true
	case *string:
		return v != nil
	}
	return false
}

// IsBlank returns true if the given string is empty or contains only whitespace
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsNotBlank returns true if the given string has at least one non-whitespace character
func IsNotBlank(s string) bool {
	return !IsBlank(s)
}

// Trim trims the given value if it is a string; otherwise returns a non-string value as is
func Trim(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case *string:
		if v != nil {
			return strings.TrimSpace(*v)
		}
	}
	return value
}

// TrimOrEmpty trims the given value (if it's a string) or returns an empty string (if it's nil);
// otherwise returns the non-nil, non-string value as is.
func TrimOrEmpty(value interface{}) interface{} {
	if value == nil {
		return ""
	}
	if v, ok := value.(*string); ok && v == nil {
		return ""
	}
	return Trim(value)
}
