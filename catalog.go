// Package catalog implements a registry update engine: the model of a
// source-based package catalog, the validators and admission rules that
// govern additions to it, the reconciler that keeps a package's known
// releases and branches in sync with its upstream repository, and the
// queue, cache and facade a frontend talks to.
//
// The engine owns no storage and speaks to no VCS host directly. It
// consumes two capabilities supplied by the host process: a DbController
// for document persistence, and a RepositoryResolver that turns a
// RepositoryDescriptor into a live Repository. Concrete adapters for a
// particular database or a particular VCS host (GitHub, GitLab, ...) are
// external collaborators, out of scope for this module.
//
// Basic usage:
//
//	resolver := catalog.RepositoryResolverFunc(myResolveFunc)
//	facade := catalog.NewFacade(myDb, resolver, nil)
//	pkg, err := facade.AddPackage(ctx, descriptor, "alice")
//
// To keep the catalog current, wire a Worker's Reconcile function to a
// Reconciler backed by the same Cache the Facade reads through:
//
//	var reconciler *catalog.Reconciler
//	worker := catalog.NewWorker(func(ctx context.Context, name string) error {
//		return reconciler.Run(ctx, name)
//	}, logger)
//	facade := catalog.NewFacade(myDb, resolver, worker)
//	admission := catalog.NewAdmission(myDb, facade.Cache())
//	reconciler = catalog.NewReconciler(myDb, resolver, admission, logger)
package catalog

import (
	"github.com/git-pkgs/purl"
	"go.uber.org/zap"

	"github.com/git-pkgs/catalog/internal/core"
)

// Re-export types from internal/core.
type (
	// Package is the catalog unit: a named, owned entry backed by a remote
	// repository, with a set of admitted releases and branch snapshots.
	Package = core.Package

	// PackageVersion is one admitted member of a Package's Versions or
	// Branches.
	PackageVersion = core.PackageVersion

	// PackageVersionInfo is the structured document copied (with
	// normalization) from the upstream package description.
	PackageVersionInfo = core.PackageVersionInfo

	// PackageSummary is the shape returned by search/list operations.
	PackageSummary = core.PackageSummary

	// CommitInfo identifies a point in a repository's history.
	CommitInfo = core.CommitInfo

	// RefCommit pairs a tag or branch name with the commit it points at.
	RefCommit = core.RefCommit

	// RefKind distinguishes branch refs from release refs.
	RefKind = core.RefKind

	// RepositoryDescriptor identifies a package's upstream repository.
	RepositoryDescriptor = core.RepositoryDescriptor

	// View is the read-optimized document the Info Cache and Facade serve.
	View = core.View

	// VersionView is one entry of a View's Versions.
	VersionView = core.VersionView
)

// Re-export interfaces from internal/core.
type (
	// Repository is the abstract remote VCS capability the engine
	// consumes. Concrete adapters are supplied by the host process.
	Repository = core.Repository

	// RepositoryResolver obtains a live Repository for a descriptor.
	RepositoryResolver = core.RepositoryResolver

	// RepositoryResolverFunc adapts a plain function to RepositoryResolver.
	RepositoryResolverFunc = core.RepositoryResolverFunc

	// DbController is the abstract document-store capability the engine
	// consumes. The concrete driver is supplied by the host process.
	DbController = core.DbController

	// Invalidator is the subset of Cache that cache-invalidating callers
	// need.
	Invalidator = core.Invalidator
)

// Re-export the RefKind values.
const (
	RefInvalid = core.RefInvalid
	RefBranch  = core.RefBranch
	RefRelease = core.RefRelease
)

// Re-export sentinel errors.
var (
	ErrNotFound                   = core.ErrNotFound
	ErrInvalidName                = core.ErrInvalidName
	ErrInvalidRef                 = core.ErrInvalidRef
	ErrMissingRequiredField       = core.ErrMissingRequiredField
	ErrMalformedDescription       = core.ErrMalformedDescription
	ErrVersionMismatch            = core.ErrVersionMismatch
	ErrDuplicateVersion           = core.ErrDuplicateVersion
	ErrNoUsablePackageDescription = core.ErrNoUsablePackageDescription
	ErrDbConflict                 = core.ErrDbConflict
)

// Re-export error types.
type (
	InvalidNameError          = core.InvalidNameError
	InvalidRefError           = core.InvalidRefError
	MissingRequiredFieldError = core.MissingRequiredFieldError
	VersionMismatchError      = core.VersionMismatchError
	NotFoundError             = core.NotFoundError
	RepositoryError           = core.RepositoryError
	DbError                   = core.DbError
)

// Facade is the entry point a frontend calls: adding and removing
// packages, reading catalog views, searching, and triggering updates.
type Facade = core.Facade

// NewFacade constructs a Facade. worker may be nil if the host process
// doesn't want background reconciliation wired up.
func NewFacade(db DbController, resolver RepositoryResolver, worker *Worker) *Facade {
	return core.NewFacade(db, resolver, worker)
}

// Cache is the in-memory per-package view cache backing Facade.GetPackageInfo.
type Cache = core.Cache

// NewCache constructs a standalone Cache. Most callers get one for free
// from Facade.Cache; this constructor is for hosts building the pipeline
// pieces directly.
func NewCache(db DbController, resolver RepositoryResolver) *Cache {
	return core.NewCache(db, resolver)
}

// Admission implements add-vs-update admission for a validated ref,
// writing through DbController and invalidating the cache.
type Admission = core.Admission

// NewAdmission constructs an Admission writing through db, invalidating
// cache before every write attempt.
func NewAdmission(db DbController, cache Invalidator) *Admission {
	return core.NewAdmission(db, cache)
}

// Reconciler brings one package's known releases and branches in sync
// with its upstream repository.
type Reconciler = core.Reconciler

// NewReconciler constructs a Reconciler. log may be nil.
func NewReconciler(db DbController, resolver RepositoryResolver, admission *Admission, log *zap.Logger) *Reconciler {
	return core.NewReconciler(db, resolver, admission, log)
}

// Worker is the single-consumer FIFO update queue driving the reconciler.
type Worker = core.Worker

// Reconcile is the function signature a Worker drains its queue into.
type Reconcile = core.Reconcile

// NewWorker constructs a Worker running reconcile for each dequeued
// package name. log may be nil.
func NewWorker(reconcile Reconcile, log *zap.Logger) *Worker {
	return core.NewWorker(reconcile, log)
}

// ValidateName enforces the package-name grammar: length >= 1, ASCII
// [A-Za-z0-9_-] only.
func ValidateName(name string) error {
	return core.ValidateName(name)
}

// ValidateDependencyKey validates every colon-separated segment of a
// dependency key against ValidateName.
func ValidateDependencyKey(key string) error {
	return core.ValidateDependencyKey(key)
}

// ClassifyRef determines whether ref is a branch ref, a release ref, or
// malformed.
func ClassifyRef(ref string) RefKind {
	return core.ClassifyRef(ref)
}

// IsValidSemver reports whether s parses as a valid semver string.
func IsValidSemver(s string) bool {
	return core.IsValidSemver(s)
}

// CompareVersions returns -1, 0 or 1 as a is less than, equal to, or
// greater than b, using semver precedence rules.
func CompareVersions(a, b string) int {
	return core.CompareVersions(a, b)
}

// TagToVersion converts a release tag ("v1.2.3") into the stored version
// string ("1.2.3").
func TagToVersion(tag string) (string, error) {
	return core.TagToVersion(tag)
}

// VersionToTag converts a stored release version into the release tag
// convention, the inverse of TagToVersion.
func VersionToTag(version string) string {
	return core.VersionToTag(version)
}

// ParseRepositoryDescriptor parses a repository descriptor string of the
// form "pkg:<host>/<owner>/<name>".
func ParseRepositoryDescriptor(s string) (RepositoryDescriptor, error) {
	return core.ParseRepositoryDescriptor(s)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}
