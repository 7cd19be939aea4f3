package core

import "strings"

// ValidateName enforces the package-name grammar (§4.A): length >= 1,
// ASCII [A-Za-z0-9_-] only. Used for package names at admission and for each
// colon-separated segment of a dependency key.
func ValidateName(name string) error {
	if len(name) == 0 {
		return &InvalidNameError{Value: name}
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return &InvalidNameError{Value: name}
		}
	}
	return nil
}

// ValidateDependencyKey validates every colon-separated segment of a
// dependency key against ValidateName (§4.E step 4, invariant I5).
func ValidateDependencyKey(key string) error {
	for _, segment := range strings.Split(key, ":") {
		if err := ValidateName(segment); err != nil {
			return err
		}
	}
	return nil
}
