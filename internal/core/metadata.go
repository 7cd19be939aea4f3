package core

import (
	"strings"

	"github.com/git-pkgs/spdx"
)

// ValidateMetadata runs the Metadata Validator (§4.E) against a fetched
// PackageVersionInfo for ref, admitting either into an existing package
// (expectedName non-empty) or establishing a new one (expectedName == "").
// On success it returns the normalized info (lowercase name, license
// canonicality noted in Metadata).
func ValidateMetadata(info PackageVersionInfo, ref, expectedName string) (PackageVersionInfo, error) {
	// Step 2: license and description required, non-empty.
	if strings.TrimSpace(info.Description) == "" {
		return info, &MissingRequiredFieldError{Field: "description"}
	}
	if strings.TrimSpace(info.License) == "" {
		return info, &MissingRequiredFieldError{Field: "license"}
	}

	// Step 3: normalize name to lowercase; it must match the package's
	// stored name when admitting to an existing package.
	if strings.TrimSpace(info.Name) == "" {
		return info, &MissingRequiredFieldError{Field: "name"}
	}
	normalized := strings.ToLower(info.Name)
	if expectedName != "" && normalized != strings.ToLower(expectedName) {
		return info, &MissingRequiredFieldError{Field: "name"}
	}
	info.Name = normalized

	// Step 4: every dependency key (and its colon-separated segments) must
	// pass the name grammar (I5).
	for key := range info.Dependencies {
		if err := ValidateDependencyKey(key); err != nil {
			return info, err
		}
	}

	// Step 5: for release refs, info.version (if present) must equal the
	// tag with leading "v" stripped (I6).
	if ClassifyRef(ref) == RefRelease && info.Version != "" {
		if info.Version != ref {
			return info, &VersionMismatchError{Tag: VersionToTag(ref), InfoVersion: info.Version}
		}
	}

	// Supplementary: record whether License parses as a legal SPDX
	// expression, without rejecting non-canonical values the spec would
	// still admit (see SPEC_FULL.md "Non-canonical license tracking").
	if info.Metadata == nil {
		info.Metadata = map[string]any{}
	}
	info.Metadata["license_canonical"] = spdx.Valid(info.License)

	return info, nil
}
