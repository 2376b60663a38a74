package image

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// MemoryRepository is a Repository kept in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	images map[string]Image
}

func NewMemoryRepository(images ...Image) *MemoryRepository {
	r := &MemoryRepository{images: map[string]Image{}}
	for _, img := range images {
		img.Installed = Union(img.Installed)
		r.images[img.Name] = img
	}
	return r
}

func (r *MemoryRepository) FindImage(_ context.Context, name string) (*Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[name]
	if !ok {
		return nil, errors.Wrapf(ErrImageNotFound, "finding image '%s'", name)
	}
	img.Installed = append([]InstalledDependency{}, img.Installed...)
	return &img, nil
}

func (r *MemoryRepository) SaveImage(_ context.Context, img *Image) error {
	if img == nil || img.Name == "" {
		return errors.New("cannot save an image without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saved := *img
	saved.Installed = Union(r.images[img.Name].Installed, img.Installed)
	r.images[img.Name] = saved
	return nil
}

func (r *MemoryRepository) ListImages(_ context.Context) ([]Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Image, 0, len(r.images))
	for _, img := range r.images {
		img.Installed = append([]InstalledDependency{}, img.Installed...)
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) DependencyInstalled(ctx context.Context, image, name, version string) (bool, error) {
	installed, err := r.InstalledVersions(ctx, image)
	if err != nil {
		return false, err
	}
	return HasInstalled(installed, name, version), nil
}

func (r *MemoryRepository) InstalledVersions(_ context.Context, image string) ([]InstalledDependency, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	img, ok := r.images[image]
	if !ok {
		return nil, errors.Wrapf(ErrImageNotFound, "reading installed dependencies of '%s'", image)
	}
	return append([]InstalledDependency{}, img.Installed...), nil
}

func (r *MemoryRepository) AddInstalledVersions(_ context.Context, image string, deps []InstalledDependency) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.images[image]
	if !ok {
		return errors.Wrapf(ErrImageNotFound, "adding installed dependencies to '%s'", image)
	}
	img.Installed = Union(img.Installed, deps)
	r.images[image] = img
	return nil
}

func (r *MemoryRepository) Close(context.Context) error { return nil }
