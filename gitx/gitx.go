// Package gitx wraps the go-git operations the release pipeline needs:
// creating and removing the transient build tag, and enumerating
// released version tags.
package gitx

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/cassandragargoyle/shipwright/version"
)

// ErrNotRepository indicates the directory is not inside a git
// repository, which is a run-level precondition failure.
var ErrNotRepository = errors.New("not a git repository")

// Repo is an open git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing dir.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	return &Repo{repo: repo}, nil
}

// CreateTag creates a lightweight tag at HEAD. A stale tag of the same
// name from a previous interrupted run is removed first.
func (r *Repo) CreateTag(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("tag name cannot be empty")
	}

	// Best-effort removal of a leftover tag; creation below fails
	// otherwise.
	_ = r.DeleteTag(ctx, name)

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}

	tagRef := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), head.Hash())
	if err := r.repo.Storer.SetReference(tagRef); err != nil {
		return fmt.Errorf("create tag %s: %w", name, err)
	}
	return nil
}

// DeleteTag removes a tag. Removing a tag that does not exist is not
// an error: cleanup must be idempotent.
func (r *Repo) DeleteTag(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	refName := plumbing.NewTagReferenceName(name)
	if _, err := r.repo.Reference(refName, true); err != nil {
		return nil
	}
	if err := r.repo.Storer.RemoveReference(refName); err != nil {
		return fmt.Errorf("delete tag %s: %w", name, err)
	}
	return nil
}

// HeadShort returns the abbreviated HEAD commit hash.
func (r *Repo) HeadShort() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String()[:7], nil
}

// HasTag reports whether the tag exists.
func (r *Repo) HasTag(name string) bool {
	_, err := r.repo.Reference(plumbing.NewTagReferenceName(name), true)
	return err == nil
}

// VersionTags returns every tag matching the strict release form
// vX.Y.Z, newest first. Snapshot tags are excluded: a snapshot is not
// a released version.
func (r *Repo) VersionTags(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	refs, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list references: %w", err)
	}

	var parsed []version.Version
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsTag() {
			return nil
		}
		v, err := version.Validate(ref.Name().Short())
		if err != nil || v.Snapshot() {
			return nil
		}
		parsed = append(parsed, v)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate references: %w", err)
	}

	version.SortDescending(parsed)
	tags := make([]string, len(parsed))
	for i, v := range parsed {
		tags[i] = v.Tag()
	}
	return tags, nil
}
