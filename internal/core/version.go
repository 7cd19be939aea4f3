package core

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// RefKind distinguishes what a ref string classifies as (§4.B).
type RefKind int

const (
	// RefInvalid is neither a well-formed branch ref nor a valid semver ref.
	RefInvalid RefKind = iota
	RefBranch
	RefRelease
)

// ClassifyRef determines whether ref is a branch ref (exactly one leading
// "~"), a release ref (valid semver), or malformed. "~~..." is reserved and
// always classifies as RefInvalid (§4.B, §6).
func ClassifyRef(ref string) RefKind {
	if strings.HasPrefix(ref, "~") {
		if strings.HasPrefix(ref, "~~") {
			return RefInvalid
		}
		return RefBranch
	}
	if IsValidSemver(ref) {
		return RefRelease
	}
	return RefInvalid
}

// BranchName strips the leading "~" from a branch ref. Caller must have
// already classified ref as RefBranch.
func BranchName(ref string) string {
	return strings.TrimPrefix(ref, "~")
}

// IsValidSemver reports whether s parses as a valid semver string
// (MAJOR.MINOR.PATCH, no "v" prefix).
func IsValidSemver(s string) bool {
	_, err := mm.StrictNewVersion(s)
	return err == nil
}

// CompareVersions returns -1, 0 or 1 as a is less than, equal to, or greater
// than b, using semver precedence rules (§4.B). Callers are expected to have
// validated both strings as semver already; a value that fails to parse
// sorts as less than any valid version.
func CompareVersions(a, b string) int {
	va, errA := mm.NewVersion(a)
	vb, errB := mm.NewVersion(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	default:
		return va.Compare(vb)
	}
}

// TagToVersion converts a release tag ("v1.2.3") into the stored version
// string ("1.2.3"), per the convention in §6. It returns an error if the tag
// doesn't start with "v" or the remainder isn't valid semver.
func TagToVersion(tag string) (string, error) {
	if !strings.HasPrefix(tag, "v") {
		return "", fmt.Errorf("tag %q does not start with 'v'", tag)
	}
	version := strings.TrimPrefix(tag, "v")
	if !IsValidSemver(version) {
		return "", fmt.Errorf("tag %q: %q is not valid semver", tag, version)
	}
	return version, nil
}

// VersionToTag converts a stored release version ("1.2.3") into the release
// tag convention ("v1.2.3"), the inverse of TagToVersion.
func VersionToTag(version string) string {
	return "v" + version
}

// SortVersionsAscending sorts release version strings in ascending semver
// order (§4.G step 3). Entries that fail to parse sort first, in lexical
// order among themselves.
func SortVersionsAscending(versions []string) {
	// Simple insertion sort: reconciler-sized lists (tags per package) are
	// small, and this keeps the comparator symmetric with CompareVersions.
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && CompareVersions(versions[j-1], versions[j]) > 0; j-- {
			versions[j-1], versions[j] = versions[j], versions[j-1]
		}
	}
}
