package image

import (
	"context"

	"github.com/evergreen-ci/cloak"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ErrImageNotFound is returned when the named image has no record.
var ErrImageNotFound = errors.New("image not found")

// Repository persists images and the set of dependencies installed on
// them. Installed sets only grow.
type Repository interface {
	FindImage(ctx context.Context, name string) (*Image, error)
	// SaveImage creates or updates the image metadata. It never removes
	// installed dependencies.
	SaveImage(ctx context.Context, img *Image) error
	ListImages(ctx context.Context) ([]Image, error)

	// DependencyInstalled reports whether the image has name installed,
	// with exactly version if version is not empty.
	DependencyInstalled(ctx context.Context, image, name, version string) (bool, error)
	InstalledVersions(ctx context.Context, image string) ([]InstalledDependency, error)
	// AddInstalledVersions adds deps to the installed set of an existing
	// image.
	AddInstalledVersions(ctx context.Context, image string, deps []InstalledDependency) error

	Close(ctx context.Context) error
}

func newCatcher() grip.Catcher { return grip.NewBasicCatcher() }

// NewRepository opens the repository backend selected in conf.
func NewRepository(ctx context.Context, conf cloak.RepositoryConfig) (Repository, error) {
	switch conf.Backend {
	case cloak.RepositoryMongo:
		repo, err := NewMongoRepository(ctx, conf.MongoURI, conf.Database)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case cloak.RepositoryPostgres:
		repo, err := NewSQLRepository(ctx, conf.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, errors.Errorf("unrecognized repository backend '%s'", conf.Backend)
	}
}
