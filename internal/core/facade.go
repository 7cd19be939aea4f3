package core

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
)

// Facade implements §4.J: the public entry points a frontend calls. It wires
// together DbController, the Cache, and the Worker/Reconciler pipeline.
type Facade struct {
	db       DbController
	resolver RepositoryResolver
	cache    *Cache
	worker   *Worker
}

// NewFacade constructs a Facade. The caller supplies db and resolver (the
// out-of-scope document-store driver and repository-capability resolver)
// and an optional worker (nil disables update triggers); the Facade builds
// and owns only the cache. Admission and Reconciler are built by the caller.
func NewFacade(db DbController, resolver RepositoryResolver, worker *Worker) *Facade {
	return &Facade{
		db:       db,
		resolver: resolver,
		cache:    NewCache(db, resolver),
		worker:   worker,
	}
}

// Cache exposes the Facade's Info Cache, so a host process can build the
// Reconciler/Worker with the same Invalidator.
func (f *Facade) Cache() *Cache { return f.cache }

// AvailablePackages lists every known package name.
func (f *Facade) AvailablePackages(ctx context.Context) ([]string, error) {
	names, err := f.db.GetAllPackageNames(ctx)
	if err != nil {
		return nil, &DbError{Op: "GetAllPackageNames", Err: err}
	}
	return names, nil
}

// AddPackage implements §4.J's addPackage: probes branches for a usable
// package description, validates it, persists the Package record, and
// enqueues a reconcile trigger.
func (f *Facade) AddPackage(ctx context.Context, descriptor RepositoryDescriptor, owner string) (Package, error) {
	repo, err := f.resolver.Resolve(descriptor)
	if err != nil {
		return Package{}, &RepositoryError{Op: "Resolve", Err: err}
	}

	branches, err := repo.GetBranches(ctx)
	if err != nil {
		return Package{}, &RepositoryError{Op: "GetBranches", Err: err}
	}

	info, err := probeBranches(ctx, repo, branches)
	if err != nil {
		return Package{}, err
	}

	if info.Description == "" || info.License == "" {
		return Package{}, &MissingRequiredFieldError{Field: "description or license"}
	}

	if err := ValidateName(info.Name); err != nil {
		return Package{}, err
	}
	for key := range info.Dependencies {
		if err := ValidateDependencyKey(key); err != nil {
			return Package{}, err
		}
	}

	name := strings.ToLower(info.Name)
	pkg := Package{
		Name:       name,
		Owner:      owner,
		Repository: descriptor,
		Versions:   make(map[string]PackageVersion),
		Branches:   make(map[string]PackageVersion),
	}

	if err := f.db.AddPackage(ctx, pkg); err != nil {
		return Package{}, &DbError{Op: "AddPackage", Err: err}
	}

	if f.worker != nil {
		f.worker.TriggerUpdate(ctx, name)
	}

	return pkg, nil
}

// probeBranches prefers "~master" if present, else tries each branch in the
// order the adapter returned them until one yields a parseable description,
// silently swallowing per-branch errors while probing (§4.J step 2, §9).
// It fails with ErrNoUsablePackageDescription if none yield one.
func probeBranches(ctx context.Context, repo Repository, branches []RefCommit) (PackageVersionInfo, error) {
	ordered := preferMaster(branches)

	for _, b := range ordered {
		info, err := fetchInfoAt(ctx, repo, b.Commit.SHA)
		if err != nil {
			continue
		}
		if info.Name == "" {
			continue
		}
		return info, nil
	}

	return PackageVersionInfo{}, ErrNoUsablePackageDescription
}

func preferMaster(branches []RefCommit) []RefCommit {
	ordered := make([]RefCommit, 0, len(branches))
	for _, b := range branches {
		if b.Ref == "master" {
			ordered = append([]RefCommit{b}, ordered...)
			continue
		}
		ordered = append(ordered, b)
	}
	return ordered
}

func fetchInfoAt(ctx context.Context, repo Repository, sha string) (PackageVersionInfo, error) {
	var buf bytes.Buffer
	if err := repo.ReadFile(ctx, sha, packageDescriptorPath, &buf); err != nil {
		return PackageVersionInfo{}, err
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		return PackageVersionInfo{}, &MissingRequiredFieldError{Field: "package.json is not a JSON object"}
	}

	return infoFromRaw(raw), nil
}

// RemovePackage implements §4.J's removePackage: persists deletion (the
// DbController enforces ownership) and evicts the cache entry.
func (f *Facade) RemovePackage(ctx context.Context, name, owner string) error {
	if err := f.db.RemovePackage(ctx, name, owner); err != nil {
		return &DbError{Op: "RemovePackage", Err: err}
	}
	f.cache.Invalidate(name)
	return nil
}

// GetPackageInfo implements §4.J's getPackageInfo (§4.I).
func (f *Facade) GetPackageInfo(ctx context.Context, name string, includeErrors bool) (*View, error) {
	view, ok, err := f.cache.Get(ctx, name, includeErrors)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &view, nil
}

// GetPackages is a thin pass-through to DbController.GetUserPackages.
func (f *Facade) GetPackages(ctx context.Context, owner string) ([]PackageSummary, error) {
	pkgs, err := f.db.GetUserPackages(ctx, owner)
	if err != nil {
		return nil, &DbError{Op: "GetUserPackages", Err: err}
	}
	return pkgs, nil
}

// SearchPackages is a thin pass-through to DbController.SearchPackages.
func (f *Facade) SearchPackages(ctx context.Context, keywords []string) ([]PackageSummary, error) {
	pkgs, err := f.db.SearchPackages(ctx, keywords)
	if err != nil {
		return nil, &DbError{Op: "SearchPackages", Err: err}
	}
	return pkgs, nil
}

// SetPackageCategories is a thin pass-through to
// DbController.SetPackageCategories.
func (f *Facade) SetPackageCategories(ctx context.Context, name string, categories []string) error {
	if err := f.db.SetPackageCategories(ctx, name, categories); err != nil {
		return &DbError{Op: "SetPackageCategories", Err: err}
	}
	return nil
}

// TriggerPackageUpdate implements §4.J's triggerPackageUpdate.
func (f *Facade) TriggerPackageUpdate(ctx context.Context, name string) {
	if f.worker != nil {
		f.worker.TriggerUpdate(ctx, name)
	}
}

// IsPackageScheduledForUpdate implements §4.J's
// isPackageScheduledForUpdate.
func (f *Facade) IsPackageScheduledForUpdate(name string) bool {
	if f.worker == nil {
		return false
	}
	return f.worker.IsScheduledForUpdate(name)
}

// CheckForNewVersions implements §4.J's checkForNewVersions: sweep every
// known package.
func (f *Facade) CheckForNewVersions(ctx context.Context) error {
	names, err := f.db.GetAllPackageNames(ctx)
	if err != nil {
		return &DbError{Op: "GetAllPackageNames", Err: err}
	}
	if f.worker != nil {
		f.worker.CheckAllForNewVersions(ctx, names)
	}
	return nil
}
