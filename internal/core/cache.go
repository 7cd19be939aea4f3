package core

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// View is the read-optimized JSON-able document the Info Cache serves
// (§4.I). Field names match the wire shape the spec describes; json tags
// keep it ready for a frontend to marshal directly.
type View struct {
	Name       string        `json:"name"`
	Repository string        `json:"repository"`
	Categories []string      `json:"categories"`
	DateAdded  time.Time     `json:"dateAdded"`
	Versions   []VersionView `json:"versions"`
	Errors     []string      `json:"errors,omitempty"`
}

// VersionView is one entry of View.Versions: the upstream info document
// plus the fields §4.I injects (version, date, url, downloadUrl). MarshalJSON
// merges Info's fields with the injected ones, the injected ones winning on
// key collision.
type VersionView struct {
	Info        map[string]any
	Version     string
	Date        string // ISO-8601 extended
	URL         string
	DownloadURL string
}

func (v VersionView) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(v.Info)+4)
	for k, val := range v.Info {
		merged[k] = val
	}
	merged["version"] = v.Version
	merged["date"] = v.Date
	merged["url"] = v.URL
	merged["downloadUrl"] = v.DownloadURL
	return json.Marshal(merged)
}

// Invalidator is the subset of Cache that Admission (§4.F) needs: evicting
// an entry before a write commits.
type Invalidator interface {
	Invalidate(name string)
}

// Cache is the in-memory per-package view cache (§4.I). A miss reconstructs
// the view by reading through db and resolving download URLs via the
// package's Repository. There is no TTL; staleness is bounded only by
// Invalidate calls from Admission and RemovePackage.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]View

	db       DbController
	resolver RepositoryResolver
}

// NewCache constructs an empty Cache reading through db, resolving download
// URLs via resolver.
func NewCache(db DbController, resolver RepositoryResolver) *Cache {
	return &Cache{
		entries:  make(map[string]View),
		db:       db,
		resolver: resolver,
	}
}

// Invalidate evicts name's cached view, if present.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

// Get returns the view for name. In normal mode (includeErrors=false) a miss
// populates the cache and the returned view omits Errors; in with-errors
// mode the cache is bypassed entirely on both read and write, and Errors is
// populated (§4.I). Returns (View{}, false) if the package doesn't exist.
func (c *Cache) Get(ctx context.Context, name string, includeErrors bool) (View, bool, error) {
	if !includeErrors {
		c.mu.RLock()
		v, ok := c.entries[name]
		c.mu.RUnlock()
		if ok {
			return v, true, nil
		}
	}

	pkg, err := c.db.GetPackage(ctx, name)
	if err != nil {
		if isNotFound(err) {
			return View{}, false, nil
		}
		return View{}, false, &DbError{Op: "GetPackage", Err: err}
	}

	view, err := buildView(pkg, c.resolver, includeErrors)
	if err != nil {
		return View{}, false, err
	}

	if !includeErrors {
		c.mu.Lock()
		c.entries[name] = view
		c.mu.Unlock()
	}

	return view, true, nil
}

func buildView(pkg Package, resolver RepositoryResolver, includeErrors bool) (View, error) {
	view := View{
		Name:       pkg.Name,
		Repository: pkg.Repository.String(),
		Categories: pkg.Categories,
		DateAdded:  pkg.DateAdded,
	}
	if includeErrors {
		view.Errors = pkg.Errors
	}

	var repo Repository
	if resolver != nil {
		if r, err := resolver.Resolve(pkg.Repository); err == nil {
			repo = r
		}
	}

	versions := make([]VersionView, 0, len(pkg.Versions)+len(pkg.Branches))
	for _, v := range pkg.Versions {
		versions = append(versions, versionViewOf(v, repo, true))
	}
	for _, v := range pkg.Branches {
		versions = append(versions, versionViewOf(v, repo, false))
	}
	view.Versions = versions

	return view, nil
}

func versionViewOf(v PackageVersion, repo Repository, isRelease bool) VersionView {
	vv := VersionView{
		Info:    infoToMap(v.Info),
		Version: v.Version,
		Date:    v.Date.Format(time.RFC3339),
	}
	if repo != nil {
		ref := v.Version
		if isRelease {
			ref = VersionToTag(v.Version)
		}
		url := repo.GetDownloadUrl(ref)
		// Legacy duplicate fields, both carrying the same value (Design
		// Notes, "Legacy URL fields").
		vv.URL = url
		vv.DownloadURL = url
	}
	return vv
}

func infoToMap(info PackageVersionInfo) map[string]any {
	m := make(map[string]any, len(info.Metadata)+4)
	for k, v := range info.Metadata {
		m[k] = v
	}
	m["name"] = info.Name
	m["description"] = info.Description
	m["license"] = info.License
	if len(info.Dependencies) > 0 {
		m["dependencies"] = info.Dependencies
	}
	return m
}

func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
