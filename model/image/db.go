package image

import (
	"context"
	"time"

	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// Collection is the name of the MongoDB collection that stores images.
	Collection = "images"
)

const (
	IdKey        = "_id"
	OSVersionKey = "os_version"
	PlatformKey  = "platform"
	IPAddrKey    = "ip_addr"
	PortKey      = "port"
	ModeKey      = "mode"
	InstalledKey = "installed"

	InstalledNameKey    = "name"
	InstalledVersionKey = "version"
)

const mongoConnectTimeout = 10 * time.Second

// MongoRepository stores one document per image in Collection. The
// installed set is an array of {name, version} subdocuments that only ever
// receives $addToSet updates.
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	ownClient  bool
}

// NewMongoRepository connects to uri and uses the images collection of
// database.
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, error) {
	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri).SetConnectTimeout(mongoConnectTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = client.Ping(connectCtx, nil); err != nil {
		grip.Warning(message.WrapError(client.Disconnect(ctx), message.Fields{
			"message": "could not disconnect from unreachable mongodb",
		}))
		return nil, errors.Wrap(err, "pinging mongodb")
	}

	r := NewMongoRepositoryFromClient(client, database)
	r.ownClient = true
	return r, nil
}

// NewMongoRepositoryFromClient uses an existing client. Close does not
// disconnect it.
func NewMongoRepositoryFromClient(client *mongo.Client, database string) *MongoRepository {
	return &MongoRepository{
		client:     client,
		collection: client.Database(database).Collection(Collection),
	}
}

func (r *MongoRepository) FindImage(ctx context.Context, name string) (*Image, error) {
	img := &Image{}
	err := r.collection.FindOne(ctx, bson.M{IdKey: name}).Decode(img)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(ErrImageNotFound, "finding image '%s'", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "finding image '%s'", name)
	}
	return img, nil
}

func (r *MongoRepository) SaveImage(ctx context.Context, img *Image) error {
	if img == nil || img.Name == "" {
		return errors.New("cannot save an image without a name")
	}

	update := bson.M{
		"$set": bson.M{
			OSVersionKey: img.OSVersion,
			PlatformKey:  img.Platform,
			IPAddrKey:    img.IPAddr,
			PortKey:      img.Port,
			ModeKey:      img.Mode,
		},
		"$addToSet": bson.M{InstalledKey: bson.M{"$each": nonNil(img.Installed)}},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{IdKey: img.Name}, update, options.Update().SetUpsert(true))
	return errors.Wrapf(err, "saving image '%s'", img.Name)
}

func (r *MongoRepository) ListImages(ctx context.Context) ([]Image, error) {
	cur, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: IdKey, Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "listing images")
	}
	out := []Image{}
	if err = cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decoding images")
	}
	return out, nil
}

func (r *MongoRepository) DependencyInstalled(ctx context.Context, image, name, version string) (bool, error) {
	match := bson.M{InstalledNameKey: name}
	if version != "" {
		match[InstalledVersionKey] = version
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{
		IdKey:        image,
		InstalledKey: bson.M{"$elemMatch": match},
	})
	if err != nil {
		return false, errors.Wrapf(err, "checking whether '%s' is installed on '%s'", name, image)
	}
	return count > 0, nil
}

func (r *MongoRepository) InstalledVersions(ctx context.Context, image string) ([]InstalledDependency, error) {
	img := &Image{}
	err := r.collection.FindOne(ctx, bson.M{IdKey: image}, options.FindOne().SetProjection(bson.M{InstalledKey: 1})).Decode(img)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.Wrapf(ErrImageNotFound, "reading installed dependencies of '%s'", image)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading installed dependencies of '%s'", image)
	}
	return Union(img.Installed), nil
}

func (r *MongoRepository) AddInstalledVersions(ctx context.Context, image string, deps []InstalledDependency) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{IdKey: image},
		bson.M{"$addToSet": bson.M{InstalledKey: bson.M{"$each": nonNil(deps)}}},
	)
	if err != nil {
		return errors.Wrapf(err, "adding installed dependencies to '%s'", image)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrImageNotFound, "adding installed dependencies to '%s'", image)
	}
	return nil
}

func (r *MongoRepository) Close(ctx context.Context) error {
	if !r.ownClient {
		return nil
	}
	return errors.Wrap(r.client.Disconnect(ctx), "disconnecting from mongodb")
}

func nonNil(deps []InstalledDependency) []InstalledDependency {
	if deps == nil {
		return []InstalledDependency{}
	}
	return deps
}
