// Package imageref derives repository and tag coordinates from image references
// as printed by the container engine.
package imageref

import (
	"errors"
	"fmt"
	"strings"

	"github.com/distribution/reference"
)

// DefaultTag is used when a reference carries no tag.
const DefaultTag = "latest"

// Dangling is how the engine prints an untagged image.
const Dangling = "<none>:<none>"

var ErrInvalidReference = errors.New("invalid image reference")

// Reference is an image reference split into its parts.
//
// Repository is the last path segment only, so "ghcr.io/acme/api:1.0" gives
// Repository "api" and Path "acme/api".
type Reference struct {
	Original   string
	Domain     string
	Path       string
	Repository string
	Tag        string
}

// Parse splits ref into domain, path, repository and tag.
// Supports formats:
//   - image:tag (default tag is "latest")
//   - image@sha256:... (tag defaults to "latest")
//   - registry.example.com:5000/group/image:tag
func Parse(ref string) (Reference, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == Dangling || strings.ContainsAny(ref, " \t\n") {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		// The engine accepts names the strict grammar rejects (upper case,
		// for example); fall back to a plain split.
		return splitReference(ref)
	}

	out := Reference{
		Original: ref,
		Domain:   reference.Domain(named),
		Path:     reference.Path(named),
		Tag:      DefaultTag,
	}
	if tagged, ok := named.(reference.Tagged); ok && tagged.Tag() != "" {
		out.Tag = tagged.Tag()
	}
	out.Repository = lastSegment(out.Path)
	if !hasExplicitDomain(ref) {
		out.Domain = ""
		out.Path = strings.TrimPrefix(out.Path, "library/")
	}
	return out, nil
}

// splitReference handles "[registry/]path[:tag][@digest]" without validating characters.
func splitReference(ref string) (Reference, error) {
	name := ref
	if idx := strings.Index(name, "@"); idx != -1 {
		name = name[:idx]
	}

	tag := DefaultTag
	if idx := strings.LastIndex(name, ":"); idx != -1 && !strings.Contains(name[idx:], "/") {
		tag = name[idx+1:]
		name = name[:idx]
	}
	if name == "" || tag == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	out := Reference{Original: ref, Path: name, Tag: tag}
	if hasExplicitDomain(name) {
		idx := strings.Index(name, "/")
		out.Domain, out.Path = name[:idx], name[idx+1:]
	}
	out.Repository = lastSegment(out.Path)
	if out.Repository == "" {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return out, nil
}

// hasExplicitDomain mirrors the engine rule: the first component is a registry
// host when it contains a dot or a port, or is "localhost".
func hasExplicitDomain(ref string) bool {
	idx := strings.Index(ref, "/")
	if idx == -1 {
		return false
	}
	first := ref[:idx]
	return strings.ContainsAny(first, ".:") || first == "localhost"
}

func lastSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx != -1 {
		return path[idx+1:]
	}
	return path
}

// Target builds "host/repository:tag".
func Target(host, repository, tag string) string {
	host = strings.TrimSuffix(host, "/")
	if tag == "" {
		tag = DefaultTag
	}
	if host == "" {
		return repository + ":" + tag
	}
	return host + "/" + repository + ":" + tag
}

// IsDangling reports whether a repo tag is the engine's untagged placeholder.
func IsDangling(repoTag string) bool {
	return repoTag == "" || repoTag == Dangling || strings.HasPrefix(repoTag, "<none>")
}
