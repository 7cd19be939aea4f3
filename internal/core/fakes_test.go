package core

import (
	"context"
	"sort"
)

// fakeDb is an in-memory DbController used across the core package's tests.
// It is intentionally simple: no indexing, linear scans, no concurrency
// guarantees beyond what a single test goroutine needs.
type fakeDb struct {
	packages map[string]Package
	errs     map[string][]string
}

func newFakeDb() *fakeDb {
	return &fakeDb{packages: make(map[string]Package)}
}

func (d *fakeDb) AddPackage(ctx context.Context, pkg Package) error {
	if _, ok := d.packages[pkg.Name]; ok {
		return ErrDbConflict
	}
	if pkg.Versions == nil {
		pkg.Versions = make(map[string]PackageVersion)
	}
	if pkg.Branches == nil {
		pkg.Branches = make(map[string]PackageVersion)
	}
	d.packages[pkg.Name] = pkg
	return nil
}

func (d *fakeDb) RemovePackage(ctx context.Context, name, owner string) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if pkg.Owner != owner {
		return ErrDbConflict
	}
	delete(d.packages, name)
	return nil
}

func (d *fakeDb) GetPackage(ctx context.Context, name string) (Package, error) {
	pkg, ok := d.packages[name]
	if !ok {
		return Package{}, &NotFoundError{Name: name}
	}
	return pkg, nil
}

func (d *fakeDb) GetAllPackageNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(d.packages))
	for name := range d.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (d *fakeDb) GetUserPackages(ctx context.Context, owner string) ([]PackageSummary, error) {
	var out []PackageSummary
	for _, pkg := range d.packages {
		if pkg.Owner == owner {
			out = append(out, PackageSummary{Name: pkg.Name, Owner: pkg.Owner, Categories: pkg.Categories, DateAdded: pkg.DateAdded})
		}
	}
	return out, nil
}

func (d *fakeDb) HasVersion(ctx context.Context, name, version string) (bool, error) {
	pkg, ok := d.packages[name]
	if !ok {
		return false, &NotFoundError{Name: name}
	}
	_, ok = pkg.Versions[version]
	return ok, nil
}

func (d *fakeDb) AddVersion(ctx context.Context, name string, version PackageVersion) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	pkg.Versions[version.Version] = version
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) UpdateVersion(ctx context.Context, name string, version PackageVersion) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if _, ok := pkg.Versions[version.Version]; !ok {
		return &NotFoundError{Name: name, Version: version.Version}
	}
	pkg.Versions[version.Version] = version
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) RemoveVersion(ctx context.Context, name, version string) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	delete(pkg.Versions, version)
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) HasBranch(ctx context.Context, name, branch string) (bool, error) {
	pkg, ok := d.packages[name]
	if !ok {
		return false, &NotFoundError{Name: name}
	}
	_, ok = pkg.Branches[branch]
	return ok, nil
}

func (d *fakeDb) AddBranch(ctx context.Context, name string, branch PackageVersion) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	pkg.Branches[branch.Version] = branch
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) UpdateBranch(ctx context.Context, name string, branch PackageVersion) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	if _, ok := pkg.Branches[branch.Version]; !ok {
		return &NotFoundError{Name: name, Version: branch.Version}
	}
	pkg.Branches[branch.Version] = branch
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) RemoveBranch(ctx context.Context, name, branch string) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	delete(pkg.Branches, branch)
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) SetPackageCategories(ctx context.Context, name string, categories []string) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	pkg.Categories = categories
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) SetPackageErrors(ctx context.Context, name string, errs []string) error {
	pkg, ok := d.packages[name]
	if !ok {
		return &NotFoundError{Name: name}
	}
	pkg.Errors = errs
	d.packages[name] = pkg
	return nil
}

func (d *fakeDb) SearchPackages(ctx context.Context, keywords []string) ([]PackageSummary, error) {
	var out []PackageSummary
	for _, pkg := range d.packages {
		for _, kw := range keywords {
			if pkg.Name == kw {
				out = append(out, PackageSummary{Name: pkg.Name, Owner: pkg.Owner})
				break
			}
		}
	}
	return out, nil
}

// fakeInvalidator records Invalidate calls for ordering assertions.
type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) Invalidate(name string) {
	f.calls = append(f.calls, name)
}
