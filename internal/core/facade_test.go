package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFacadeAddPackagePrefersMaster(t *testing.T) {
	db := newFakeDb()
	repo := &stubRepository{
		branches: []RefCommit{
			{Ref: "experimental", Commit: CommitInfo{SHA: "c-exp", Date: time.Now()}},
			{Ref: "master", Commit: CommitInfo{SHA: "c-master", Date: time.Now()}},
		},
		files: map[string]string{
			"c-exp":    `{"name":"bar","license":"MIT","description":"from experimental"}`,
			"c-master": `{"name":"foo","license":"MIT","description":"from master"}`,
		},
	}

	facade := NewFacade(db, resolverForStub(repo), nil)
	descriptor := RepositoryDescriptor{Host: "github", Owner: "alice", Name: "foo", Raw: "pkg:github/alice/foo"}

	pkg, err := facade.AddPackage(context.Background(), descriptor, "alice")
	if err != nil {
		t.Fatalf("AddPackage() error = %v", err)
	}
	if pkg.Name != "foo" {
		t.Errorf("Name = %q, want foo", pkg.Name)
	}
	if pkg.Owner != "alice" {
		t.Errorf("Owner = %q, want alice", pkg.Owner)
	}

	stored, _ := db.GetPackage(context.Background(), "foo")
	if stored.Name != "foo" {
		t.Error("expected package persisted")
	}
}

func TestFacadeAddPackageFallsBackWhenMasterUnusable(t *testing.T) {
	db := newFakeDb()
	repo := &stubRepository{
		branches: []RefCommit{
			{Ref: "master", Commit: CommitInfo{SHA: "c-master", Date: time.Now()}},
			{Ref: "dev", Commit: CommitInfo{SHA: "c-dev", Date: time.Now()}},
		},
		files: map[string]string{
			// master has no package.json at all (probe fails silently).
			"c-dev": `{"name":"foo","license":"MIT","description":"from dev"}`,
		},
	}

	facade := NewFacade(db, resolverForStub(repo), nil)
	descriptor := RepositoryDescriptor{Host: "github", Owner: "alice", Name: "foo", Raw: "pkg:github/alice/foo"}

	pkg, err := facade.AddPackage(context.Background(), descriptor, "alice")
	if err != nil {
		t.Fatalf("AddPackage() error = %v", err)
	}
	if pkg.Name != "foo" {
		t.Errorf("Name = %q, want foo", pkg.Name)
	}
}

func TestFacadeAddPackageNoUsableDescription(t *testing.T) {
	db := newFakeDb()
	repo := &stubRepository{
		branches: []RefCommit{{Ref: "master", Commit: CommitInfo{SHA: "c-master", Date: time.Now()}}},
		files:    map[string]string{},
	}

	facade := NewFacade(db, resolverForStub(repo), nil)
	descriptor := RepositoryDescriptor{Host: "github", Owner: "alice", Name: "foo", Raw: "pkg:github/alice/foo"}

	_, err := facade.AddPackage(context.Background(), descriptor, "alice")
	if !errors.Is(err, ErrNoUsablePackageDescription) {
		t.Fatalf("AddPackage() error = %v, want ErrNoUsablePackageDescription", err)
	}
}

func TestFacadeAddPackageRejectsBadDependencyNames(t *testing.T) {
	db := newFakeDb()
	repo := &stubRepository{
		branches: []RefCommit{{Ref: "master", Commit: CommitInfo{SHA: "c-master", Date: time.Now()}}},
		files: map[string]string{
			"c-master": `{"name":"foo","license":"MIT","description":"x","dependencies":{"bad key":"1.0.0"}}`,
		},
	}

	facade := NewFacade(db, resolverForStub(repo), nil)
	descriptor := RepositoryDescriptor{Host: "github", Owner: "alice", Name: "foo", Raw: "pkg:github/alice/foo"}

	_, err := facade.AddPackage(context.Background(), descriptor, "alice")
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("AddPackage() error = %v, want ErrInvalidName", err)
	}
}

func TestFacadeAddPackageEnqueuesTrigger(t *testing.T) {
	db := newFakeDb()
	repo := &stubRepository{
		branches: []RefCommit{{Ref: "master", Commit: CommitInfo{SHA: "c-master", Date: time.Now()}}},
		files: map[string]string{
			"c-master": `{"name":"foo","license":"MIT","description":"x"}`,
		},
	}

	reconciled := make(chan string, 1)
	worker := NewWorker(func(ctx context.Context, name string) error {
		reconciled <- name
		return nil
	}, nil)

	facade := NewFacade(db, resolverForStub(repo), worker)
	descriptor := RepositoryDescriptor{Host: "github", Owner: "alice", Name: "foo", Raw: "pkg:github/alice/foo"}

	if _, err := facade.AddPackage(context.Background(), descriptor, "alice"); err != nil {
		t.Fatalf("AddPackage() error = %v", err)
	}

	select {
	case name := <-reconciled:
		if name != "foo" {
			t.Errorf("reconciled name = %q, want foo", name)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected AddPackage to enqueue a reconcile trigger")
	}
}

func TestFacadeRemovePackageEvictsCache(t *testing.T) {
	db := newFakeDb()
	ctx := context.Background()
	_ = db.AddPackage(ctx, packageWithOneRelease())

	facade := NewFacade(db, resolverForStub(&fakeRepository{}), nil)

	if _, err := facade.GetPackageInfo(ctx, "widget", false); err != nil {
		t.Fatalf("GetPackageInfo() error = %v", err)
	}

	if err := facade.RemovePackage(ctx, "widget", "alice"); err != nil {
		t.Fatalf("RemovePackage() error = %v", err)
	}

	view, err := facade.GetPackageInfo(ctx, "widget", false)
	if err != nil {
		t.Fatalf("GetPackageInfo() error = %v", err)
	}
	if view != nil {
		t.Error("expected nil view for a removed package")
	}
}

func TestFacadeGetPackageInfoMissing(t *testing.T) {
	db := newFakeDb()
	facade := NewFacade(db, resolverForStub(&fakeRepository{}), nil)

	view, err := facade.GetPackageInfo(context.Background(), "nonexistent", false)
	if err != nil {
		t.Fatalf("GetPackageInfo() error = %v", err)
	}
	if view != nil {
		t.Error("expected nil view for a nonexistent package")
	}
}

func TestFacadeSearchAndCategories(t *testing.T) {
	db := newFakeDb()
	ctx := context.Background()
	_ = db.AddPackage(ctx, packageWithOneRelease())

	facade := NewFacade(db, resolverForStub(&fakeRepository{}), nil)

	if err := facade.SetPackageCategories(ctx, "widget", []string{"tooling"}); err != nil {
		t.Fatalf("SetPackageCategories() error = %v", err)
	}

	results, err := facade.SearchPackages(ctx, []string{"widget"})
	if err != nil {
		t.Fatalf("SearchPackages() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one search result, got %d", len(results))
	}
}

func TestFacadeIsPackageScheduledForUpdateWithoutWorker(t *testing.T) {
	db := newFakeDb()
	facade := NewFacade(db, resolverForStub(&fakeRepository{}), nil)

	if facade.IsPackageScheduledForUpdate("anything") {
		t.Error("expected false when no worker is wired up")
	}
}
