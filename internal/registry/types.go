package registry

import (
	"errors"
	"fmt"
)

// PublishMeta is the JSON document a client sends inside the publish payload.
// Unknown fields are ignored so newer cargo clients keep working.
type PublishMeta struct {
	Name          string              `json:"name"`
	Vers          string              `json:"vers"`
	Deps          []Dependency        `json:"deps"`
	Features      map[string][]string `json:"features"`
	Authors       []string            `json:"authors,omitempty"`
	Description   string              `json:"description,omitempty"`
	Documentation string              `json:"documentation,omitempty"`
	Homepage      string              `json:"homepage,omitempty"`
	Readme        string              `json:"readme,omitempty"`
	ReadmeFile    string              `json:"readme_file,omitempty"`
	Keywords      []string            `json:"keywords,omitempty"`
	Categories    []string            `json:"categories,omitempty"`
	License       string              `json:"license,omitempty"`
	LicenseFile   string              `json:"license_file,omitempty"`
	Repository    string              `json:"repository,omitempty"`
	Links         string              `json:"links,omitempty"`
}

// Dependency describes one requirement of a published version, in the shape
// the publish endpoint receives it.
type Dependency struct {
	Name            string   `json:"name"`
	VersionReq      string   `json:"version_req"`
	Features        []string `json:"features"`
	Optional        bool     `json:"optional"`
	DefaultFeatures bool     `json:"default_features"`
	Target          string   `json:"target,omitempty"`
	Kind            string   `json:"kind"`
	Registry        string   `json:"registry,omitempty"`
}

// PackageInfo is the stored record for one published version. Serialized
// as-is, one line per version, it forms the index document clients consume.
type PackageInfo struct {
	Name     string              `json:"name"`
	Vers     string              `json:"vers"`
	Deps     []Dependency        `json:"deps"`
	Cksum    string              `json:"cksum"`
	Features map[string][]string `json:"features"`
	Yanked   bool                `json:"yanked"`
	Links    string              `json:"links,omitempty"`
}

// Owner is one entry of a package's owner set.
type Owner struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name,omitempty"`
}

// Token management and identity resolution live elsewhere; the registry core
// only ever sees an opaque user id.

var (
	// ErrMalformedPayload marks publish bodies that violate the framing or
	// metadata contract. Always the client's fault.
	ErrMalformedPayload = errors.New("malformed publish payload")

	// ErrWriteConflict is returned when the store reports a transactional
	// race on package creation. Safe for the caller to retry.
	ErrWriteConflict = errors.New("write conflict on package creation")

	// ErrNotOwner is returned when the acting user is not in the owner set
	// of the package being modified.
	ErrNotOwner = errors.New("user is not an owner of the package")
)

// PackageNotFoundError indicates the package was never published.
type PackageNotFoundError struct {
	Name string
}

func (e *PackageNotFoundError) Error() string {
	return fmt.Sprintf("package %s does not exist", e.Name)
}

// VersionNotFoundError indicates the package exists but the version does not,
// or the (package, version) pair is unknown to the store.
type VersionNotFoundError struct {
	Name    string
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %s of package %s does not exist", e.Version, e.Name)
}

// DuplicateVersionError indicates a publish for a (name, version) pair that
// already has a record. The stored record is left untouched.
type DuplicateVersionError struct {
	Name    string
	Version string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("version %s of package %s is already published", e.Version, e.Name)
}
