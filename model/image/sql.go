package image

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS images (
	name       TEXT PRIMARY KEY,
	os_version TEXT NOT NULL,
	platform   TEXT NOT NULL DEFAULT '',
	ip_addr    TEXT NOT NULL DEFAULT '',
	port       INTEGER NOT NULL DEFAULT 0,
	mode       TEXT NOT NULL DEFAULT 'normal'
);

CREATE TABLE IF NOT EXISTS installed_dependencies (
	image_name TEXT NOT NULL REFERENCES images(name) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	version    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (image_name, name, version)
);
`

// SQLRepository stores images in PostgreSQL.
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository connects to the PostgreSQL database at dsn and creates
// the tables if they do not exist.
func NewSQLRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to postgres")
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	r := NewSQLRepositoryFromDB(db)
	if err = r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func NewSQLRepositoryFromDB(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// EnsureSchema creates the image tables if needed.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return errors.Wrap(err, "creating schema")
}

func (r *SQLRepository) FindImage(ctx context.Context, name string) (*Image, error) {
	img := &Image{}
	err := r.db.GetContext(ctx, img, `SELECT name, os_version, platform, ip_addr, port, mode FROM images WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrImageNotFound, "finding image '%s'", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding image '%s'", name)
	}

	if img.Installed, err = r.InstalledVersions(ctx, name); err != nil {
		return nil, err
	}
	return img, nil
}

func (r *SQLRepository) SaveImage(ctx context.Context, img *Image) error {
	if img == nil || img.Name == "" {
		return errors.New("cannot save an image without a name")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO images (name, os_version, platform, ip_addr, port, mode)
		VALUES (:name, :os_version, :platform, :ip_addr, :port, :mode)
		ON CONFLICT (name) DO UPDATE SET
			os_version = EXCLUDED.os_version,
			platform = EXCLUDED.platform,
			ip_addr = EXCLUDED.ip_addr,
			port = EXCLUDED.port,
			mode = EXCLUDED.mode
	`
	if _, err = tx.NamedExecContext(ctx, query, img); err != nil {
		return errors.Wrapf(err, "saving image '%s'", img.Name)
	}
	if err = insertInstalled(ctx, tx, img.Name, img.Installed); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "committing image")
}

func (r *SQLRepository) ListImages(ctx context.Context) ([]Image, error) {
	images := []Image{}
	if err := r.db.SelectContext(ctx, &images, `SELECT name, os_version, platform, ip_addr, port, mode FROM images ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "listing images")
	}
	for i := range images {
		installed, err := r.InstalledVersions(ctx, images[i].Name)
		if err != nil {
			return nil, err
		}
		images[i].Installed = installed
	}
	return images, nil
}

func (r *SQLRepository) DependencyInstalled(ctx context.Context, image, name, version string) (bool, error) {
	var count int
	var err error
	if version == "" {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM installed_dependencies WHERE image_name = $1 AND name = $2`, image, name)
	} else {
		err = r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM installed_dependencies WHERE image_name = $1 AND name = $2 AND version = $3`, image, name, version)
	}
	if err != nil {
		return false, errors.Wrapf(err, "checking whether '%s' is installed on '%s'", name, image)
	}
	return count > 0, nil
}

func (r *SQLRepository) InstalledVersions(ctx context.Context, image string) ([]InstalledDependency, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM images WHERE name = $1)`, image); err != nil {
		return nil, errors.Wrapf(err, "looking up image '%s'", image)
	}
	if !exists {
		return nil, errors.Wrapf(ErrImageNotFound, "reading installed dependencies of '%s'", image)
	}

	deps := []InstalledDependency{}
	err := r.db.SelectContext(ctx, &deps, `SELECT name, version FROM installed_dependencies WHERE image_name = $1 ORDER BY name, version`, image)
	return deps, errors.Wrapf(err, "reading installed dependencies of '%s'", image)
}

func (r *SQLRepository) AddInstalledVersions(ctx context.Context, image string, deps []InstalledDependency) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM images WHERE name = $1)`, image); err != nil {
		return errors.Wrapf(err, "looking up image '%s'", image)
	}
	if !exists {
		return errors.Wrapf(ErrImageNotFound, "adding installed dependencies to '%s'", image)
	}
	if err = insertInstalled(ctx, tx, image, deps); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing installed dependencies")
}

func (r *SQLRepository) Close(context.Context) error {
	return errors.Wrap(r.db.Close(), "closing postgres connection")
}

func insertInstalled(ctx context.Context, tx *sqlx.Tx, image string, deps []InstalledDependency) error {
	for _, dep := range deps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO installed_dependencies (image_name, name, version) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			image, dep.Name, dep.Version)
		if err != nil {
			return errors.Wrapf(err, "recording '%s' as installed on '%s'", dep.Name, image)
		}
	}
	return nil
}
