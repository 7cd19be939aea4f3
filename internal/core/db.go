package core

import "context"

// DbController is the abstract document-store capability the engine
// consumes (§4.D). The concrete driver is an external collaborator, out of
// scope for this module (§1); no SQL/NoSQL assumptions beyond document
// semantics are made here.
type DbController interface {
	AddPackage(ctx context.Context, pkg Package) error
	RemovePackage(ctx context.Context, name, owner string) error
	GetPackage(ctx context.Context, name string) (Package, error)
	GetAllPackageNames(ctx context.Context) ([]string, error)
	GetUserPackages(ctx context.Context, owner string) ([]PackageSummary, error)

	HasVersion(ctx context.Context, name, version string) (bool, error)
	AddVersion(ctx context.Context, name string, version PackageVersion) error
	UpdateVersion(ctx context.Context, name string, version PackageVersion) error
	RemoveVersion(ctx context.Context, name, version string) error

	HasBranch(ctx context.Context, name, branch string) (bool, error)
	AddBranch(ctx context.Context, name string, branch PackageVersion) error
	UpdateBranch(ctx context.Context, name string, branch PackageVersion) error
	RemoveBranch(ctx context.Context, name, branch string) error

	SetPackageCategories(ctx context.Context, name string, categories []string) error
	SetPackageErrors(ctx context.Context, name string, errs []string) error

	SearchPackages(ctx context.Context, keywords []string) ([]PackageSummary, error)
}
