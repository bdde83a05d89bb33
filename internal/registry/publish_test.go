package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"cratevault.org/internal/storage"
)

func publishBody(t *testing.T, name, vers string, tarball []byte) []byte {
	t.Helper()
	body, err := EncodePublish(PublishMeta{Name: name, Vers: vers}, tarball)
	if err != nil {
		t.Fatalf("EncodePublish: %v", err)
	}
	return body
}

func TestPublishPipeline(t *testing.T) {
	repo := NewInMemory()
	blobs := storage.NewMemory()
	pub := NewPublisher(repo, blobs)
	ctx := context.Background()

	tarball := []byte("gzip bytes")
	info, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", tarball))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	sum := sha256.Sum256(tarball)
	if info.Cksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("checksum mismatch: %s", info.Cksum)
	}

	got, err := blobs.Get(ctx, storage.Key("testcrate_1", "0.1.1"))
	if err != nil {
		t.Fatalf("blob Get: %v", err)
	}
	if !bytes.Equal(got, tarball) {
		t.Fatal("stored tarball differs from the upload")
	}

	infos, err := repo.GetPackageInfo(ctx, "testcrate_1")
	if err != nil {
		t.Fatalf("GetPackageInfo: %v", err)
	}
	if len(infos) != 1 || infos[0].Vers != "0.1.1" {
		t.Fatalf("metadata record not visible: %+v", infos)
	}
}

func TestPublishDuplicateLeavesArchiveUntouched(t *testing.T) {
	repo := NewInMemory()
	blobs := storage.NewMemory()
	pub := NewPublisher(repo, blobs)
	ctx := context.Background()

	if _, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", []byte("first"))); err != nil {
		t.Fatalf("first publish: %v", err)
	}

	_, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", []byte("second")))
	var dup *DuplicateVersionError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v, want DuplicateVersionError", err)
	}

	// the rejected upload must not reach the blob store: the download still
	// matches the committed checksum
	infos, err := repo.GetPackageInfo(ctx, "testcrate_1")
	if err != nil {
		t.Fatalf("GetPackageInfo: %v", err)
	}
	sum := sha256.Sum256([]byte("first"))
	if infos[0].Cksum != hex.EncodeToString(sum[:]) {
		t.Fatalf("index checksum changed on a rejected publish: %s", infos[0].Cksum)
	}
	data, err := pub.Download(ctx, "testcrate_1", "0.1.1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(data, []byte("first")) {
		t.Fatalf("rejected publish replaced the archive: %q", data)
	}
	got := sha256.Sum256(data)
	if hex.EncodeToString(got[:]) != infos[0].Cksum {
		t.Fatal("archive no longer matches the index checksum")
	}
}

func TestPublishMalformedBody(t *testing.T) {
	pub := NewPublisher(NewInMemory(), storage.NewMemory())
	if _, err := pub.Publish(context.Background(), "user-1", []byte{1, 2}); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("got %v, want ErrMalformedPayload", err)
	}
}

func TestDownload(t *testing.T) {
	repo := NewInMemory()
	blobs := storage.NewMemory()
	pub := NewPublisher(repo, blobs)
	ctx := context.Background()

	tarball := []byte("archive")
	if _, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", tarball)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := pub.Download(ctx, "testcrate_1", "0.1.1")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, tarball) {
		t.Fatal("downloaded bytes differ from the upload")
	}

	var missing *VersionNotFoundError
	if _, err := pub.Download(ctx, "testcrate_1", "9.9.9"); !errors.As(err, &missing) {
		t.Fatalf("got %v, want VersionNotFoundError", err)
	}
}

func TestAddOwnersRequiresOwnership(t *testing.T) {
	repo := NewInMemory()
	pub := NewPublisher(repo, storage.NewMemory())
	ctx := context.Background()

	if _, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", []byte("x"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if err := pub.AddOwners(ctx, "user-2", "testcrate_1", []string{"user-3"}); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("got %v, want ErrNotOwner", err)
	}

	if err := pub.AddOwners(ctx, "user-1", "testcrate_1", []string{"user-2"}); err != nil {
		t.Fatalf("AddOwners by owner: %v", err)
	}
	owners, err := pub.ListOwners(ctx, "testcrate_1")
	if err != nil {
		t.Fatalf("ListOwners: %v", err)
	}
	if len(owners) != 2 {
		t.Fatalf("expected 2 owners, got %+v", owners)
	}

	// now user-2 may extend the set too
	if err := pub.AddOwners(ctx, "user-2", "testcrate_1", []string{"user-3"}); err != nil {
		t.Fatalf("AddOwners by new owner: %v", err)
	}
}

func TestYankThroughPublisher(t *testing.T) {
	repo := NewInMemory()
	pub := NewPublisher(repo, storage.NewMemory())
	ctx := context.Background()

	if _, err := pub.Publish(ctx, "user-1", publishBody(t, "testcrate_1", "0.1.1", []byte("x"))); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Yank(ctx, "testcrate_1", "0.1.1", true); err != nil {
		t.Fatalf("Yank: %v", err)
	}
	infos, err := repo.GetPackageInfo(ctx, "testcrate_1")
	if err != nil {
		t.Fatalf("GetPackageInfo: %v", err)
	}
	if !infos[0].Yanked {
		t.Fatal("yank did not stick")
	}
	if err := pub.Yank(ctx, "testcrate_1", "0.1.1", false); err != nil {
		t.Fatalf("unyank: %v", err)
	}
}
