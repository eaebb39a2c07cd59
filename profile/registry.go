package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
)

// ErrNotFound reports a profile name that resolved to no file.
var ErrNotFound = errors.New("profile: profile not found")

// Registry loads translation profiles from a filesystem (lazy, cached).
// Resolves name+env to {name}.{env}.yaml with fallback to {name}.yaml.
type Registry struct {
	fsys  fs.FS
	mu    sync.RWMutex
	cache map[string]*Profile
}

// New creates a Registry over fsys, e.g. an embed.FS of profile files.
func New(fsys fs.FS) *Registry {
	return &Registry{fsys: fsys, cache: make(map[string]*Profile)}
}

// NewDir creates a Registry that reads profile files from a directory.
func NewDir(dir string) *Registry {
	return New(os.DirFS(dir))
}

// Get returns a profile by name and env. Lazy-loads and caches. File
// resolution: {name}.{env}.yaml or .yml, fallback {name}.yaml or .yml.
func (r *Registry) Get(ctx context.Context, name, env string) (*Profile, error) {
	if err := validateName(name, env); err != nil {
		return nil, err
	}
	key := name + ":" + env
	r.mu.RLock()
	p, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return p.clone(), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok = r.cache[key]; ok {
		return p.clone(), nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	for _, candidate := range candidates(name, env) {
		p, err := ParseFS(r.fsys, candidate)
		if err == nil {
			r.cache[key] = p
			return p.clone(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Reload clears the cache (for hot-reload in development).
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*Profile)
}

func candidates(name, env string) []string {
	var out []string
	if env != "" {
		out = append(out, name+"."+env+".yaml", name+"."+env+".yml")
	}
	return append(out, name+".yaml", name+".yml")
}

func validateName(name, env string) error {
	for _, s := range []string{name, env} {
		if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
			return fmt.Errorf("%w: invalid name %q", ErrInvalid, s)
		}
	}
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalid)
	}
	return nil
}

func (p *Profile) clone() *Profile {
	out := *p
	out.InferPriority = append([]string(nil), p.InferPriority...)
	return &out
}
