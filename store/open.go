package store

import "context"

// Open selects a Store implementation the way cmn.Config does for every
// other pluggable concern: an empty DSN means mock/embedded, a non-empty one
// means the production backend. mongoAdminConnection empty -> BuntStore
// in-memory; non-empty -> MongoStore against that DSN.
func Open(ctx context.Context, mongoAdminConnection string) (Store, error) {
	if mongoAdminConnection == "" {
		return NewBuntStore("")
	}
	return NewMongoStore(ctx, mongoAdminConnection)
}
