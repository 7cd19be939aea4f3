package core

import (
	"context"
	"time"
)

// Admission implements §4.F: deciding add-vs-update for a given ref,
// writing through DbController, and invalidating the cache.
type Admission struct {
	db    DbController
	cache Invalidator
}

// NewAdmission constructs an Admission writing through db and invalidating
// cache before every write attempt.
func NewAdmission(db DbController, cache Invalidator) *Admission {
	return &Admission{db: db, cache: cache}
}

// Admit runs §4.F for packageName/ref with the already-fetched info. It
// returns updated=true when this is a brand new admission (not previously
// present), false when an existing entry was refreshed in place.
func (a *Admission) Admit(ctx context.Context, packageName, ref string, rawInfo PackageVersionInfo, date time.Time, sha string) (updated bool, err error) {
	// Step 1: invalidate unconditionally before write. A concurrent reader
	// either sees the old value or misses and reloads — never a stale
	// value after this write commits (§4.G rationale, §9).
	a.cache.Invalidate(packageName)

	// Step 2: metadata validation.
	info, err := ValidateMetadata(rawInfo, ref, packageName)
	if err != nil {
		return false, err
	}

	// Step 3: classify the ref.
	kind := ClassifyRef(ref)
	if kind == RefInvalid {
		return false, &InvalidRefError{Ref: ref}
	}

	version := PackageVersion{
		Version: ref,
		Date:    date,
		Info:    info,
		SHA:     sha,
	}

	switch kind {
	case RefBranch:
		has, err := a.db.HasBranch(ctx, packageName, version.Version)
		if err != nil {
			return false, &DbError{Op: "HasBranch", Err: err}
		}
		if has {
			if err := a.db.UpdateBranch(ctx, packageName, version); err != nil {
				return false, &DbError{Op: "UpdateBranch", Err: err}
			}
			return false, nil
		}
		if err := a.db.AddBranch(ctx, packageName, version); err != nil {
			return false, &DbError{Op: "AddBranch", Err: err}
		}
		return true, nil

	case RefRelease:
		has, err := a.db.HasVersion(ctx, packageName, version.Version)
		if err != nil {
			return false, &DbError{Op: "HasVersion", Err: err}
		}
		if has {
			if err := a.db.UpdateVersion(ctx, packageName, version); err != nil {
				return false, &DbError{Op: "UpdateVersion", Err: err}
			}
			return false, nil
		}
		if err := a.db.AddVersion(ctx, packageName, version); err != nil {
			return false, &DbError{Op: "AddVersion", Err: err}
		}
		return true, nil
	}

	return false, &InvalidRefError{Ref: ref}
}

// RemoveRef dispatches to RemoveBranch or RemoveVersion by prefix (§4.G
// step 6: "removeVersion... chooses branch vs. release by prefix").
func RemoveRef(ctx context.Context, db DbController, packageName, ref string) error {
	if ClassifyRef(ref) == RefBranch {
		return db.RemoveBranch(ctx, packageName, ref)
	}
	return db.RemoveVersion(ctx, packageName, ref)
}
