package store

import "context"

// Spec drives every Find* call: a filter (field -> expected value, applied
// as an exact-match predicate), optional field projection, pagination, and
// sort. MongoStore filters and projects on any field; BuntStore ignores
// Fields and matches only the fields its per-collection field functions
// name, so a filter on any other field matches nothing. LoadFields is
// carried from the load_fields query parameter, but neither backend reads
// it: *_id fields are always returned unresolved.
type Spec struct {
	Filter     map[string]any
	Fields     []string
	Skip       int
	Limit      int
	Sort       []string
	LoadFields bool
}

// UserFinder is the narrow slice of Store that package authn depends on, so
// authn need not import the whole store surface.
type UserFinder interface {
	FindUserByMail(ctx context.Context, mail string) (*User, error)
}

// Store is the document-store contract. Both the embedded BuntDB backend
// (store.NewBuntStore, mock/dev mode) and the Mongo backend
// (store.NewMongoStore, production mode) implement it; callers never branch
// on which is active. BuntStore rejects a User without mail, a
// TransformProfile without title and an Environment without name;
// MongoStore does not check those fields.
type Store interface {
	UserFinder

	InsertUser(ctx context.Context, u *User) error
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUsers(ctx context.Context, spec Spec) ([]*User, error)
	CountUsers(ctx context.Context, spec Spec) (int, error)
	UpdateUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id string) error

	InsertMedia(ctx context.Context, m *Media) error
	FindMediaByID(ctx context.Context, id string) (*Media, error)
	FindMediaByURI(ctx context.Context, uri string) (*Media, error)
	FindMedias(ctx context.Context, spec Spec) ([]*Media, error)
	CountMedias(ctx context.Context, spec Spec) (int, error)
	UpdateMedia(ctx context.Context, m *Media) error
	DeleteMedia(ctx context.Context, id string) error

	InsertProfile(ctx context.Context, p *TransformProfile) error
	FindProfileByID(ctx context.Context, id string) (*TransformProfile, error)
	FindProfiles(ctx context.Context, spec Spec) ([]*TransformProfile, error)
	CountProfiles(ctx context.Context, spec Spec) (int, error)
	UpdateProfile(ctx context.Context, p *TransformProfile) error
	DeleteProfile(ctx context.Context, id string) error

	InsertTransformTask(ctx context.Context, t *TransformTask) error
	FindTransformTaskByID(ctx context.Context, id string) (*TransformTask, error)
	FindTransformTasks(ctx context.Context, spec Spec) ([]*TransformTask, error)
	CountTransformTasks(ctx context.Context, spec Spec) (int, error)
	UpdateTransformTask(ctx context.Context, t *TransformTask) error
	DeleteTransformTask(ctx context.Context, id string) error

	InsertPublisherTask(ctx context.Context, t *PublisherTask) error
	FindPublisherTaskByID(ctx context.Context, id string) (*PublisherTask, error)
	FindPublisherTasks(ctx context.Context, spec Spec) ([]*PublisherTask, error)
	CountPublisherTasks(ctx context.Context, spec Spec) (int, error)
	UpdatePublisherTask(ctx context.Context, t *PublisherTask) error
	DeletePublisherTask(ctx context.Context, id string) error

	InsertEnvironment(ctx context.Context, e *Environment) error
	FindEnvironmentByName(ctx context.Context, name string) (*Environment, error)
	FindEnvironments(ctx context.Context, spec Spec) ([]*Environment, error)
	DeleteEnvironment(ctx context.Context, name string) error

	// Flush wipes every collection (POST /flush, root only).
	Flush(ctx context.Context) error

	Close() error
}
