package registry

import (
	"context"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Repository is the authoritative metadata store. All coordination between
// concurrent publishes is delegated to the implementation's conditional and
// transactional writes; callers hold no locks across these calls.
type Repository interface {
	// GetPackageInfo returns every published version of a package in
	// publish order. A package with no recorded versions at all yields
	// *PackageNotFoundError, never an empty slice.
	GetPackageInfo(ctx context.Context, name string) ([]PackageInfo, error)

	// HeadVersion returns the record with the highest version precedence.
	HeadVersion(ctx context.Context, name string) (PackageInfo, error)

	// StorePackageInfo records a new version. If the package does not
	// exist yet it is created atomically with the version, with publisher
	// as its sole owner. A record for the same (name, version) makes the
	// call fail with *DuplicateVersionError and writes nothing; a racing
	// first publish surfaces as ErrWriteConflict.
	StorePackageInfo(ctx context.Context, publisher string, info PackageInfo) error

	// SetYanked flips the yanked flag on an existing version. Idempotent;
	// fails with *VersionNotFoundError if the version was never published.
	SetYanked(ctx context.Context, name, version string, yanked bool) error

	// ListOwners returns the owner set of an existing package.
	ListOwners(ctx context.Context, name string) ([]Owner, error)

	// AddOwners unions userIDs into the owner set. Already-present ids are
	// not an error. The package must exist.
	AddOwners(ctx context.Context, name string, userIDs []string) error
}

// InMemory implements Repository with in-process locking. Used in tests and
// for local development; production runs on the Postgres implementation.
type InMemory struct {
	mu       sync.RWMutex
	packages map[string]*memPackage
}

type memPackage struct {
	owners   map[string]struct{}
	ordered  []PackageInfo // publish order
	versions map[string]int
}

func NewInMemory() *InMemory {
	return &InMemory{packages: make(map[string]*memPackage)}
}

var _ Repository = (*InMemory)(nil)

func (s *InMemory) GetPackageInfo(ctx context.Context, name string) ([]PackageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Name: name}
	}
	out := make([]PackageInfo, len(pkg.ordered))
	copy(out, pkg.ordered)
	return out, nil
}

func (s *InMemory) HeadVersion(ctx context.Context, name string) (PackageInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[name]
	if !ok {
		return PackageInfo{}, &PackageNotFoundError{Name: name}
	}
	head := pkg.ordered[0]
	headKey := sortKeyOf(head)
	for _, info := range pkg.ordered[1:] {
		if key := sortKeyOf(info); key > headKey {
			head, headKey = info, key
		}
	}
	return head, nil
}

func (s *InMemory) StorePackageInfo(ctx context.Context, publisher string, info PackageInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[info.Name]
	if !ok {
		pkg = &memPackage{
			owners:   map[string]struct{}{publisher: {}},
			versions: make(map[string]int),
		}
		s.packages[info.Name] = pkg
	}
	if _, exists := pkg.versions[info.Vers]; exists {
		return &DuplicateVersionError{Name: info.Name, Version: info.Vers}
	}
	pkg.versions[info.Vers] = len(pkg.ordered)
	pkg.ordered = append(pkg.ordered, info)
	return nil
}

func (s *InMemory) SetYanked(ctx context.Context, name, version string, yanked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[name]
	if !ok {
		return &VersionNotFoundError{Name: name, Version: version}
	}
	idx, ok := pkg.versions[version]
	if !ok {
		return &VersionNotFoundError{Name: name, Version: version}
	}
	pkg.ordered[idx].Yanked = yanked
	return nil
}

func (s *InMemory) ListOwners(ctx context.Context, name string) ([]Owner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[name]
	if !ok {
		return nil, &PackageNotFoundError{Name: name}
	}
	out := make([]Owner, 0, len(pkg.owners))
	for id := range pkg.owners {
		out = append(out, Owner{ID: id, Login: id})
	}
	return out, nil
}

func (s *InMemory) AddOwners(ctx context.Context, name string, userIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[name]
	if !ok {
		return &PackageNotFoundError{Name: name}
	}
	for _, id := range userIDs {
		pkg.owners[id] = struct{}{}
	}
	return nil
}

func sortKeyOf(info PackageInfo) string {
	v, err := semver.NewVersion(info.Vers)
	if err != nil {
		// Stored versions were validated at publish time.
		return info.Vers
	}
	return SortKey(v)
}
