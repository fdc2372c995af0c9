package store

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oscied/orchestrator/cmn"
)

// MongoStore is the production document store, selected when
// StoreConf.MongoAdminConnection is set. Collection and index names mirror
// spec §6 exactly: users, medias, transform_profiles, transform_tasks,
// publisher_tasks.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoStore(ctx context.Context, dsn string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "mongo ping failed")
	}
	ms := &MongoStore{client: client, db: client.Database("oscied")}
	if err := ms.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return ms, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	type uniqueIdx struct {
		coll, field string
		ci          bool
	}
	idxs := []uniqueIdx{
		{"users", "mail", true},
		{"medias", "uri", false},
		{"transform_profiles", "title", false},
		{"environments", "name", false},
	}
	for _, idx := range idxs {
		model := mongo.IndexModel{Keys: bson.D{{Key: idx.field, Value: 1}}}
		opts := options.Index().SetUnique(true)
		if idx.ci {
			opts = opts.SetCollation(&options.Collation{Locale: "en", Strength: 2})
		}
		model.Options = opts
		if _, err := s.db.Collection(idx.coll).Indexes().CreateOne(ctx, model); err != nil {
			return cmn.Wrap(err, cmn.KindInternal, "failed to create index on "+idx.coll)
		}
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Flush(ctx context.Context) error {
	for _, coll := range []string{"users", "medias", "transform_profiles", "transform_tasks", "publisher_tasks", "environments"} {
		if _, err := s.db.Collection(coll).DeleteMany(ctx, bson.D{}); err != nil {
			return cmn.Wrap(err, cmn.KindInternal, "flush failed")
		}
	}
	return nil
}

func isDupKey(err error) bool {
	var we mongo.WriteException
	if e, ok := err.(mongo.WriteException); ok {
		we = e
	} else {
		return false
	}
	for _, we := range we.WriteErrors {
		if we.Code == 11000 {
			return true
		}
	}
	return false
}

func fieldFromDupKeyErr(err error) string {
	msg := err.Error()
	for _, f := range []string{"mail", "uri", "title"} {
		if strings.Contains(msg, f) {
			return f
		}
	}
	return "unknown"
}

func findOpts(spec Spec) *options.FindOptions {
	opts := options.Find()
	if spec.Skip > 0 {
		opts.SetSkip(int64(spec.Skip))
	}
	if spec.Limit > 0 {
		opts.SetLimit(int64(spec.Limit))
	}
	if len(spec.Sort) > 0 {
		sortDoc := bson.D{}
		for _, key := range spec.Sort {
			dir := 1
			if strings.HasPrefix(key, "-") {
				dir = -1
				key = key[1:]
			}
			sortDoc = append(sortDoc, bson.E{Key: key, Value: dir})
		}
		opts.SetSort(sortDoc)
	}
	if len(spec.Fields) > 0 {
		proj := bson.D{}
		for _, f := range spec.Fields {
			proj = append(proj, bson.E{Key: f, Value: 1})
		}
		opts.SetProjection(proj)
	}
	return opts
}

func filterDoc(spec Spec) bson.M {
	if len(spec.Filter) == 0 {
		return bson.M{}
	}
	m := bson.M{}
	for k, v := range spec.Filter {
		m[k] = v
	}
	return m
}

// ---- User ----

func (s *MongoStore) coll(name string) *mongo.Collection { return s.db.Collection(name) }

func (s *MongoStore) InsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	_, err := s.coll("users").InsertOne(ctx, u)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.coll("users").FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

func (s *MongoStore) FindUserByMail(ctx context.Context, mail string) (*User, error) {
	var u User
	err := s.coll("users").FindOne(ctx, bson.M{"mail": bson.M{"$regex": "^" + regexp.QuoteMeta(mail) + "$", "$options": "i"}}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &u, err
}

func (s *MongoStore) FindUsers(ctx context.Context, spec Spec) ([]*User, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"last_name", "first_name"}
	}
	cur, err := s.coll("users").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*User
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) CountUsers(ctx context.Context, spec Spec) (int, error) {
	n, err := s.coll("users").CountDocuments(ctx, filterDoc(spec))
	return int(n), err
}

func (s *MongoStore) UpdateUser(ctx context.Context, u *User) error {
	_, err := s.coll("users").ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) DeleteUser(ctx context.Context, id string) error {
	_, err := s.coll("users").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ---- Media ----

func (s *MongoStore) InsertMedia(ctx context.Context, m *Media) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.Metadata == nil || m.Metadata["title"] == nil || m.Metadata["title"] == "" {
		return cmn.NewInvalidRequest("metadata.title is required")
	}
	if m.PublicURIs == nil {
		m.PublicURIs = map[string]string{}
	}
	_, err := s.coll("medias").InsertOne(ctx, m)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) FindMediaByID(ctx context.Context, id string) (*Media, error) {
	var m Media
	err := s.coll("medias").FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &m, err
}

func (s *MongoStore) FindMediaByURI(ctx context.Context, uri string) (*Media, error) {
	var m Media
	err := s.coll("medias").FindOne(ctx, bson.M{"uri": uri}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &m, err
}

func (s *MongoStore) FindMedias(ctx context.Context, spec Spec) ([]*Media, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"metadata.title"}
	}
	cur, err := s.coll("medias").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*Media
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) CountMedias(ctx context.Context, spec Spec) (int, error) {
	n, err := s.coll("medias").CountDocuments(ctx, filterDoc(spec))
	return int(n), err
}

func (s *MongoStore) UpdateMedia(ctx context.Context, m *Media) error {
	_, err := s.coll("medias").ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) DeleteMedia(ctx context.Context, id string) error {
	_, err := s.coll("medias").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ---- TransformProfile ----

func (s *MongoStore) InsertProfile(ctx context.Context, p *TransformProfile) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := s.coll("transform_profiles").InsertOne(ctx, p)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) FindProfileByID(ctx context.Context, id string) (*TransformProfile, error) {
	var p TransformProfile
	err := s.coll("transform_profiles").FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &p, err
}

func (s *MongoStore) FindProfiles(ctx context.Context, spec Spec) ([]*TransformProfile, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"encoder_name", "title"}
	}
	cur, err := s.coll("transform_profiles").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*TransformProfile
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) CountProfiles(ctx context.Context, spec Spec) (int, error) {
	n, err := s.coll("transform_profiles").CountDocuments(ctx, filterDoc(spec))
	return int(n), err
}

func (s *MongoStore) UpdateProfile(ctx context.Context, p *TransformProfile) error {
	_, err := s.coll("transform_profiles").ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if isDupKey(err) {
		return cmn.NewDuplicateKey(fieldFromDupKeyErr(err))
	}
	return err
}

func (s *MongoStore) DeleteProfile(ctx context.Context, id string) error {
	_, err := s.coll("transform_profiles").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ---- TransformTask ----

func (s *MongoStore) InsertTransformTask(ctx context.Context, t *TransformTask) error {
	if t.ID == "" {
		return cmn.NewInvalidRequest("task id is required")
	}
	if t.Statistic == nil {
		t.Statistic = TaskStatistic{}
	}
	_, err := s.coll("transform_tasks").InsertOne(ctx, t)
	return err
}

func (s *MongoStore) FindTransformTaskByID(ctx context.Context, id string) (*TransformTask, error) {
	var t TransformTask
	err := s.coll("transform_tasks").FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &t, err
}

func (s *MongoStore) FindTransformTasks(ctx context.Context, spec Spec) ([]*TransformTask, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"-statistic.add_date"}
	}
	cur, err := s.coll("transform_tasks").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*TransformTask
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) CountTransformTasks(ctx context.Context, spec Spec) (int, error) {
	n, err := s.coll("transform_tasks").CountDocuments(ctx, filterDoc(spec))
	return int(n), err
}

func (s *MongoStore) UpdateTransformTask(ctx context.Context, t *TransformTask) error {
	_, err := s.coll("transform_tasks").ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	return err
}

func (s *MongoStore) DeleteTransformTask(ctx context.Context, id string) error {
	_, err := s.coll("transform_tasks").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ---- PublisherTask ----

func (s *MongoStore) InsertPublisherTask(ctx context.Context, t *PublisherTask) error {
	if t.ID == "" {
		return cmn.NewInvalidRequest("task id is required")
	}
	if t.Statistic == nil {
		t.Statistic = TaskStatistic{}
	}
	_, err := s.coll("publisher_tasks").InsertOne(ctx, t)
	return err
}

func (s *MongoStore) FindPublisherTaskByID(ctx context.Context, id string) (*PublisherTask, error) {
	var t PublisherTask
	err := s.coll("publisher_tasks").FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &t, err
}

func (s *MongoStore) FindPublisherTasks(ctx context.Context, spec Spec) ([]*PublisherTask, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"-statistic.add_date"}
	}
	cur, err := s.coll("publisher_tasks").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*PublisherTask
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) CountPublisherTasks(ctx context.Context, spec Spec) (int, error) {
	n, err := s.coll("publisher_tasks").CountDocuments(ctx, filterDoc(spec))
	return int(n), err
}

func (s *MongoStore) UpdatePublisherTask(ctx context.Context, t *PublisherTask) error {
	_, err := s.coll("publisher_tasks").ReplaceOne(ctx, bson.M{"_id": t.ID}, t)
	return err
}

func (s *MongoStore) DeletePublisherTask(ctx context.Context, id string) error {
	_, err := s.coll("publisher_tasks").DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// ---- Environment ----

func (s *MongoStore) InsertEnvironment(ctx context.Context, e *Environment) error {
	_, err := s.coll("environments").InsertOne(ctx, e)
	return err
}

func (s *MongoStore) FindEnvironmentByName(ctx context.Context, name string) (*Environment, error) {
	var e Environment
	err := s.coll("environments").FindOne(ctx, bson.M{"name": name}).Decode(&e)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	return &e, err
}

func (s *MongoStore) FindEnvironments(ctx context.Context, spec Spec) ([]*Environment, error) {
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"name"}
	}
	cur, err := s.coll("environments").Find(ctx, filterDoc(spec), findOpts(spec))
	if err != nil {
		return nil, err
	}
	var out []*Environment
	err = cur.All(ctx, &out)
	return out, err
}

func (s *MongoStore) DeleteEnvironment(ctx context.Context, name string) error {
	_, err := s.coll("environments").DeleteOne(ctx, bson.M{"name": name})
	return err
}
