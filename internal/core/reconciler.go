package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// packageDescriptorPath is where the upstream package description lives in
// the repository at a given commit (§6).
const packageDescriptorPath = "/package.json"

// Reconciler runs §4.G for a single package: fetch refs, admit each, detect
// and remove vanished versions, and accumulate a per-ref error report.
type Reconciler struct {
	db        DbController
	resolver  RepositoryResolver
	admission *Admission
	breakers  *breakerRegistry
	log       *zap.Logger
}

// NewReconciler constructs a Reconciler. log defaults to a no-op logger if
// nil.
func NewReconciler(db DbController, resolver RepositoryResolver, admission *Admission, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		db:        db,
		resolver:  resolver,
		admission: admission,
		breakers:  newBreakerRegistry(),
		log:       log,
	}
}

// BreakerStates exposes open/closed circuit-breaker state per repository
// (keyed by descriptor string), for administrative views (SPEC_FULL.md "Breaker state
// introspection").
func (r *Reconciler) BreakerStates() map[string]string {
	return r.breakers.states()
}

// Run executes one reconciler run for packageName (§4.G).
func (r *Reconciler) Run(ctx context.Context, packageName string) error {
	var errs []string

	// Step 1: load current snapshot via the read path.
	pkg, err := r.db.GetPackage(ctx, packageName)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Error getting package info: %v", err))
		_ = r.persistErrors(ctx, packageName, errs)
		return nil
	}

	// Step 2: resolve the repository.
	repo, err := r.resolver.Resolve(pkg.Repository)
	if err != nil {
		errs = append(errs, fmt.Sprintf("Error accessing repository: %v", err))
		_ = r.persistErrors(ctx, packageName, errs)
		return nil
	}
	repo = r.breakers.wrapRepository(repo, pkg.Repository.String())

	existing := make(map[string]bool)
	gotAll := true

	// Step 3: fetch refs.
	tags, tagErr := repo.GetTags(ctx)
	if tagErr != nil {
		errs = append(errs, fmt.Sprintf("Failed to get GIT tags/branches: %v", tagErr))
		gotAll = false
	}
	branches, branchErr := repo.GetBranches(ctx)
	if branchErr != nil {
		errs = append(errs, fmt.Sprintf("Failed to get GIT tags/branches: %v", branchErr))
		gotAll = false
	}

	releaseTags := filterAndSortTags(tags)

	// Step 4: admit tags.
	for _, t := range releaseTags {
		version, convErr := TagToVersion(t.Ref)
		if convErr != nil {
			// filterAndSortTags already excludes these; defensive only.
			continue
		}
		existing[version] = true

		info, fetchErr := r.fetchInfo(ctx, repo, t.Commit.SHA)
		if fetchErr != nil {
			errs = append(errs, fmt.Sprintf("Version %s: %v", version, fetchErr))
			continue
		}

		added, admitErr := r.admission.Admit(ctx, packageName, version, info, t.Commit.Date, t.Commit.SHA)
		if admitErr != nil {
			errs = append(errs, fmt.Sprintf("Version %s: %v", version, admitErr))
			continue
		}
		if added {
			r.log.Info("admitted new release", zap.String("package", packageName), zap.String("version", version))
		}
	}

	// Step 5: admit branches.
	for _, b := range branches {
		ref := "~" + b.Ref
		existing[ref] = true

		info, fetchErr := r.fetchInfo(ctx, repo, b.Commit.SHA)
		if fetchErr != nil {
			errs = append(errs, fmt.Sprintf("Version %s: %v", ref, fetchErr))
			continue
		}

		added, admitErr := r.admission.Admit(ctx, packageName, ref, info, b.Commit.Date, b.Commit.SHA)
		if admitErr != nil {
			errs = append(errs, fmt.Sprintf("Version %s: %v", ref, admitErr))
			continue
		}
		if added {
			r.log.Info("admitted new branch", zap.String("package", packageName), zap.String("branch", ref))
		}
	}

	// Step 6: prune vanished versions, only if every upstream fetch
	// succeeded.
	if gotAll {
		for version := range pkg.Versions {
			if existing[version] {
				continue
			}
			if err := RemoveRef(ctx, r.db, packageName, version); err != nil {
				errs = append(errs, fmt.Sprintf("Error removing version %s: %v", version, err))
				continue
			}
			r.log.Info("pruned vanished version", zap.String("package", packageName), zap.String("version", version))
		}
		for branch := range pkg.Branches {
			if existing[branch] {
				continue
			}
			if err := RemoveRef(ctx, r.db, packageName, branch); err != nil {
				errs = append(errs, fmt.Sprintf("Error removing branch %s: %v", branch, err))
				continue
			}
			r.log.Info("pruned vanished branch", zap.String("package", packageName), zap.String("branch", branch))
		}
	}

	// Step 7: persist errors.
	if errs == nil {
		errs = []string{}
	}
	return r.persistErrors(ctx, packageName, errs)
}

func (r *Reconciler) persistErrors(ctx context.Context, packageName string, errs []string) error {
	if err := r.db.SetPackageErrors(ctx, packageName, errs); err != nil {
		return &DbError{Op: "SetPackageErrors", Err: err}
	}
	return nil
}

// fetchInfo reads /package.json at sha and parses it as JSON (§6).
func (r *Reconciler) fetchInfo(ctx context.Context, repo Repository, sha string) (PackageVersionInfo, error) {
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

func infoFromRaw(raw map[string]any) PackageVersionInfo {
	info := PackageVersionInfo{Metadata: map[string]any{}}
	for k, v := range raw {
		switch k {
		case "name":
			info.Name, _ = v.(string)
		case "description":
			info.Description, _ = v.(string)
		case "license":
			info.License, _ = v.(string)
		case "version":
			info.Version, _ = v.(string)
		case "dependencies":
			if deps, ok := v.(map[string]any); ok {
				info.Dependencies = make(map[string]string, len(deps))
				for dk, dv := range deps {
					if s, ok := dv.(string); ok {
						info.Dependencies[dk] = s
					}
				}
			}
		default:
			info.Metadata[k] = v
		}
	}
	return info
}

// filterAndSortTags keeps only tags starting with "v" whose remainder is
// valid semver, sorted ascending by semver (§4.G step 3).
func filterAndSortTags(tags []RefCommit) []RefCommit {
	kept := make([]RefCommit, 0, len(tags))
	for _, t := range tags {
		if !strings.HasPrefix(t.Ref, "v") {
			continue
		}
		if !IsValidSemver(strings.TrimPrefix(t.Ref, "v")) {
			continue
		}
		kept = append(kept, t)
	}
	sort.Slice(kept, func(i, j int) bool {
		return CompareVersions(strings.TrimPrefix(kept[i].Ref, "v"), strings.TrimPrefix(kept[j].Ref, "v")) < 0
	})
	return kept
}
