package resolver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/endpoint"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/manifest"
	"github.com/gitsu-io/gitsu/pkg/semver"
)

// GitResolver materializes git repositories through the git binary.
// Tags that parse as semantic versions are the repository's versions;
// other targets are treated as branch or tag names.
type GitResolver struct {
	tmp    string
	logger *log.Logger
	cache  cache.Cache
	keyer  cache.Keyer
}

// refsTTL bounds how long a cached ls-remote listing stays fresh. Remote
// refs churn, so the window is short; within one resolve run it still
// collapses repeated listings of a shared source.
const refsTTL = 5 * time.Minute

// gitRef is one remote tag or branch.
type gitRef struct {
	name   string // tag or branch name
	commit string
}

// Fetch lists remote refs, picks the one matching the endpoint's target
// and clones it shallowly into a scratch directory.
func (r *GitResolver) Fetch(ctx context.Context, ep *endpoint.Endpoint) (*Result, error) {
	refs, err := r.lsRemote(ctx, ep.Source)
	if err != nil {
		return nil, err
	}

	ref, version, err := pickRef(refs, ep.Target)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "no matching revision for %s#%s", ep.Source, ep.Target)
	}

	dir, err := scratchDir(r.tmp)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("cloning", "source", ep.Source, "ref", ref, "dir", dir)
	if err := r.clone(ctx, ep.Source, ref, dir); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	meta, err := manifest.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if version != "" && meta.Version == "" {
		meta.Version = version
	}
	meta.Release = ref
	return &Result{CanonicalDir: dir, PkgMeta: meta, Targetable: true}, nil
}

// Targetable always reports true: tags give git sources revisions.
func (r *GitResolver) Targetable() bool { return true }

// Versions lists a repository's semver tags, highest first.
func (r *GitResolver) Versions(ctx context.Context, source string) ([]string, error) {
	refs, err := r.lsRemote(ctx, source)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, ref := range refs {
		if v := tagVersion(ref.name); v != "" {
			versions = append(versions, v)
		}
	}
	sort.Slice(versions, func(i, j int) bool {
		return semver.Compare(versions[i], versions[j]) > 0
	})
	return versions, nil
}

func (r *GitResolver) lsRemote(ctx context.Context, source string) ([]gitRef, error) {
	var key string
	if r.cache != nil {
		key = r.keyer.SourceKey(source, "refs")
		if data, ok, _ := r.cache.Get(ctx, key); ok {
			return parseRefs(data), nil
		}
	}

	out, err := r.git(ctx, "", "ls-remote", "--tags", "--heads", source)
	if err != nil {
		return nil, errors.Wrap(errors.ENETWORK, err, "listing refs of %s", source)
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, key, out, refsTTL)
	}
	return parseRefs(out), nil
}

func parseRefs(out []byte) []gitRef {
	var refs []gitRef
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			continue
		}
		name := fields[1]
		if strings.HasSuffix(name, "^{}") {
			continue
		}
		name = strings.TrimPrefix(name, "refs/tags/")
		name = strings.TrimPrefix(name, "refs/heads/")
		refs = append(refs, gitRef{name: name, commit: fields[0]})
	}
	return refs
}

func (r *GitResolver) clone(ctx context.Context, source, ref, dir string) error {
	args := []string{"clone", "--depth", "1", "--quiet"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, source, dir)
	if _, err := r.git(ctx, "", args...); err != nil {
		return errors.Wrap(errors.ENETWORK, err, "cloning %s", source)
	}
	return os.RemoveAll(filepath.Join(dir, ".git"))
}

func (r *GitResolver) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s: %v: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// pickRef selects the remote ref matching target. The returned version is
// non-empty when the ref is a semver tag.
func pickRef(refs []gitRef, target string) (ref, version string, err error) {
	type candidate struct{ tag, version string }
	var candidates []candidate
	for _, r := range refs {
		if v := tagVersion(r.name); v != "" {
			candidates = append(candidates, candidate{tag: r.name, version: v})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return semver.Compare(candidates[i].version, candidates[j].version) > 0
	})

	switch {
	case target == "*" || target == "":
		if len(candidates) > 0 {
			return candidates[0].tag, candidates[0].version, nil
		}
		// No tags at all: default branch.
		return "", "", nil
	case semver.Valid(target):
		for _, c := range candidates {
			if semver.Eq(c.version, target) {
				return c.tag, c.version, nil
			}
		}
		return "", "", errors.New(errors.ENOTFOUND, "version %s not found", target)
	case semver.ValidRange(target):
		for _, c := range candidates {
			if semver.Satisfies(c.version, target) {
				return c.tag, c.version, nil
			}
		}
		return "", "", errors.New(errors.ENORESTARGET, "no version satisfying %s", target)
	default:
		// Branch or tag name, cloned as-is.
		for _, r := range refs {
			if r.name == target {
				return target, tagVersion(r.name), nil
			}
		}
		return "", "", errors.New(errors.ENOTFOUND, "ref %s not found", target)
	}
}

// tagVersion extracts the semantic version a tag encodes, or empty.
func tagVersion(tag string) string {
	v := strings.TrimPrefix(tag, "v")
	if semver.Valid(v) {
		return v
	}
	return ""
}
