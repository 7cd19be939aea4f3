package core

import (
	"context"
	"fmt"
	"io"

	packageurl "github.com/package-url/packageurl-go"
)

// Repository is the abstract remote VCS capability the engine consumes
// (§4.C). Concrete adapters (GitHub/GitLab/Bitbucket HTTP clients) are an
// external collaborator and out of scope for this module; the engine only
// ever talks to this interface.
type Repository interface {
	// GetTags returns every tag ref and the commit it points at.
	GetTags(ctx context.Context) ([]RefCommit, error)

	// GetBranches returns every branch name and the commit it points at.
	GetBranches(ctx context.Context) ([]RefCommit, error)

	// ReadFile streams the bytes of the file at path, at the given commit,
	// to sink.
	ReadFile(ctx context.Context, sha, path string, sink io.Writer) error

	// GetDownloadUrl returns the download URL for the given ref.
	GetDownloadUrl(ref string) string
}

// RefCommit pairs a tag or branch name with the commit it currently points
// at.
type RefCommit struct {
	Ref    string
	Commit CommitInfo
}

// RepositoryDescriptor identifies a package's upstream repository: a tagged
// union of host type + owner + path (§3). It is parsed from a `pkg:`-scheme
// PURL string, e.g. "pkg:github/git-pkgs/registries" — a concrete, grounded
// shape for what the spec leaves as an "opaque descriptor". This does not
// implement an adapter; RepositoryResolver (consumed by the Facade) still
// turns a descriptor into a live Repository.
type RepositoryDescriptor struct {
	Host  string // "github", "gitlab", "bitbucket", ...
	Owner string
	Name  string
	Raw   string // the original descriptor string, preserved verbatim
}

// ParseRepositoryDescriptor parses a repository descriptor string of the
// form "pkg:<host>/<owner>/<name>".
func ParseRepositoryDescriptor(s string) (RepositoryDescriptor, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return RepositoryDescriptor{}, fmt.Errorf("parsing repository descriptor %q: %w", s, err)
	}
	if p.Namespace == "" || p.Name == "" {
		return RepositoryDescriptor{}, fmt.Errorf("repository descriptor %q: missing owner or name", s)
	}
	return RepositoryDescriptor{
		Host:  p.Type,
		Owner: p.Namespace,
		Name:  p.Name,
		Raw:   s,
	}, nil
}

func (d RepositoryDescriptor) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	return fmt.Sprintf("pkg:%s/%s/%s", d.Host, d.Owner, d.Name)
}

// RepositoryResolver obtains a live Repository for a descriptor. Supplied by
// the host process; the engine never constructs one itself (§1, §6).
type RepositoryResolver interface {
	Resolve(descriptor RepositoryDescriptor) (Repository, error)
}

// RepositoryResolverFunc adapts a plain function to RepositoryResolver.
type RepositoryResolverFunc func(descriptor RepositoryDescriptor) (Repository, error)

func (f RepositoryResolverFunc) Resolve(descriptor RepositoryDescriptor) (Repository, error) {
	return f(descriptor)
}
