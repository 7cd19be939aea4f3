// Package core implements the registry update engine: the catalog data
// model, the validators and admission rules that govern it, the reconciler
// that keeps it in sync with upstream repositories, and the queue, cache and
// facade that a frontend talks to.
package core

import "time"

// Package is the catalog unit: a named, owned entry backed by a remote
// repository, with a set of admitted releases and branch snapshots.
type Package struct {
	Name       string
	Owner      string
	Repository RepositoryDescriptor
	Categories []string
	Versions   map[string]PackageVersion // keyed by semver string, e.g. "1.2.3"
	Branches   map[string]PackageVersion // keyed by "~"+branch name, e.g. "~master"
	Errors     []string
	DateAdded  time.Time
}

// PackageVersion is one admitted member of a Package's Versions or Branches.
type PackageVersion struct {
	Version string // "1.2.3" for releases, "~master" for branches
	Date    time.Time
	Info    PackageVersionInfo
	SHA     string
}

// PackageVersionInfo is the structured document copied verbatim from the
// upstream package description (package.json-equivalent), plus the
// normalization §4.E performs.
type PackageVersionInfo struct {
	Name         string
	Description  string
	License      string
	Version      string // legacy field, only meaningful on release refs
	Dependencies map[string]string
	Metadata     map[string]any
}

// PackageSummary is the shape returned by search/list operations that don't
// need the full version history.
type PackageSummary struct {
	Name        string
	Owner       string
	Description string
	Categories  []string
	DateAdded   time.Time
}

// CommitInfo identifies a point in a repository's history.
type CommitInfo struct {
	SHA  string
	Date time.Time
}
