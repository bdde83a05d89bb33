package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"cratevault.org/internal/storage"
)

// Publisher orchestrates the write-side operations of the registry: the
// publish pipeline plus the yank and ownership transitions. It decides
// nothing about authentication; callers hand it an already-authenticated
// user id.
type Publisher struct {
	repo  Repository
	blobs storage.BlobStore
}

func NewPublisher(repo Repository, blobs storage.BlobStore) *Publisher {
	return &Publisher{repo: repo, blobs: blobs}
}

// Publish decodes a publish body, stores the tarball and then the metadata
// record. The blob write always completes before the metadata commit, so a
// visible version implies a retrievable archive. A duplicate version is
// rejected before any bytes reach the blob store; the conditional metadata
// insert stays the final authority under concurrent publishes, and blob Put
// never replaces existing content. A failure between the two writes leaves an
// orphaned blob behind; that is accepted and never rolled back.
func (p *Publisher) Publish(ctx context.Context, userID string, body []byte) (PackageInfo, error) {
	meta, version, tarball, err := DecodePublish(body)
	if err != nil {
		return PackageInfo{}, err
	}

	sum := sha256.Sum256(tarball)
	info := PackageInfo{
		Name:     meta.Name,
		Vers:     version.String(),
		Deps:     meta.Deps,
		Cksum:    hex.EncodeToString(sum[:]),
		Features: meta.Features,
		Links:    meta.Links,
	}

	if err := p.checkNotPublished(ctx, info.Name, info.Vers); err != nil {
		return PackageInfo{}, err
	}

	key := storage.Key(info.Name, info.Vers)
	if err := p.blobs.Put(ctx, key, tarball); err != nil {
		return PackageInfo{}, fmt.Errorf("store tarball for %s-%s: %w", info.Name, info.Vers, err)
	}
	if err := p.repo.StorePackageInfo(ctx, userID, info); err != nil {
		return PackageInfo{}, err
	}
	return info, nil
}

// checkNotPublished rejects a (name, version) pair that already has a
// committed record, so a rejected publish cannot touch the stored archive.
func (p *Publisher) checkNotPublished(ctx context.Context, name, version string) error {
	infos, err := p.repo.GetPackageInfo(ctx, name)
	if err != nil {
		var missing *PackageNotFoundError
		if errors.As(err, &missing) {
			return nil
		}
		return err
	}
	for _, existing := range infos {
		if existing.Vers == version {
			return &DuplicateVersionError{Name: name, Version: version}
		}
	}
	return nil
}

// Yank flips the yanked flag. No ownership check happens here; the caller
// decides who may yank. Toggling an already-set flag succeeds.
func (p *Publisher) Yank(ctx context.Context, name, version string, yanked bool) error {
	return p.repo.SetYanked(ctx, name, version, yanked)
}

// ListOwners returns the package's owner set.
func (p *Publisher) ListOwners(ctx context.Context, name string) ([]Owner, error) {
	return p.repo.ListOwners(ctx, name)
}

// AddOwners unions userIDs into the owner set after verifying the acting
// user is an owner. Adding an id that is already present is a no-op.
func (p *Publisher) AddOwners(ctx context.Context, actorID, name string, userIDs []string) error {
	owners, err := p.repo.ListOwners(ctx, name)
	if err != nil {
		return err
	}
	if !containsOwner(owners, actorID) {
		return ErrNotOwner
	}
	return p.repo.AddOwners(ctx, name, userIDs)
}

// Download fetches the stored tarball for a published version.
func (p *Publisher) Download(ctx context.Context, name, version string) ([]byte, error) {
	data, err := p.blobs.Get(ctx, storage.Key(name, version))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, &VersionNotFoundError{Name: name, Version: version}
		}
		return nil, err
	}
	return data, nil
}

func containsOwner(owners []Owner, id string) bool {
	for _, o := range owners {
		if o.ID == id {
			return true
		}
	}
	return false
}
