package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tidwall/buntdb"

	"github.com/oscied/orchestrator/cmn"
)

// BuntStore is the embedded/mock document store: github.com/tidwall/buntdb,
// the same dependency the teacher wires up at ais/target.go via
// dbdriver.NewBuntDB(filepath.Join(config.ConfigDir, dbName)) for its own
// local key-value metadata. Selected whenever StoreConf.MongoAdminConnection
// is empty (spec §6).
type BuntStore struct {
	db *buntdb.DB
	mu sync.Mutex // serializes unique-key check-then-insert across collections
}

const (
	collUsers        = "user"
	collMedias       = "media"
	collProfiles     = "profile"
	collXformTasks   = "xform_task"
	collPubTasks     = "pub_task"
	collEnvironments = "environment"
)

// NewBuntStore opens (or creates) a BuntDB database at path. An empty path
// opens a process-local, non-persistent instance (":memory:" in BuntDB
// terms) — the default for tests and for StoreConf.Mock().
func NewBuntStore(path string) (*BuntStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, cmn.Wrap(err, cmn.KindInternal, "failed to open embedded store")
	}
	return &BuntStore{db: db}, nil
}

func (s *BuntStore) Close() error { return s.db.Close() }

func collKey(coll, id string) string { return coll + ":" + id }

func (s *BuntStore) insert(coll, id string, v any, uniques map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *buntdb.Tx) error {
		for field, val := range uniques {
			ukey := uniqueKey(coll, field, val)
			if _, err := tx.Get(ukey); err == nil {
				return cmn.NewDuplicateKey(field)
			} else if err != buntdb.ErrNotFound {
				return err
			}
		}
		data, err := cmn.Marshal(v)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(collKey(coll, id), string(data), nil); err != nil {
			return err
		}
		for field, val := range uniques {
			if _, _, err := tx.Set(uniqueKey(coll, field, val), id, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

// uniqueKey does not itself fold case: userUniques already lower-cases
// Mail (the one case-insensitive field, spec §3), so folding again here
// would also make Media.uri and TransformProfile.title case-insensitive,
// which the spec does not call for.
func uniqueKey(coll, field, val string) string {
	return "uniq:" + coll + ":" + field + ":" + val
}

func (s *BuntStore) update(coll, id string, v any, uniques map[string]string, prevUniques map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *buntdb.Tx) error {
		for field, val := range uniques {
			if prevUniques[field] == val {
				continue
			}
			ukey := uniqueKey(coll, field, val)
			if _, err := tx.Get(ukey); err == nil {
				return cmn.NewDuplicateKey(field)
			} else if err != buntdb.ErrNotFound {
				return err
			}
		}
		data, err := cmn.Marshal(v)
		if err != nil {
			return err
		}
		if _, _, err := tx.Set(collKey(coll, id), string(data), nil); err != nil {
			return err
		}
		for field, val := range prevUniques {
			if uniques[field] != val {
				_, _ = tx.Delete(uniqueKey(coll, field, val))
			}
		}
		for field, val := range uniques {
			if prevUniques[field] == val {
				continue
			}
			if _, _, err := tx.Set(uniqueKey(coll, field, val), id, nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BuntStore) delete(coll, id string, uniques map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(collKey(coll, id)); err != nil && err != buntdb.ErrNotFound {
			return err
		}
		for field, val := range uniques {
			_, _ = tx.Delete(uniqueKey(coll, field, val))
		}
		return nil
	})
}

func (s *BuntStore) get(coll, id string, out any) (bool, error) {
	var raw string
	err := s.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(collKey(coll, id))
		if err != nil {
			return err
		}
		raw = v
		return nil
	})
	if err == buntdb.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, cmn.Unmarshal([]byte(raw), out)
}

// scan loads every document in coll, letting each caller unmarshal into its
// own concrete type via decode.
func (s *BuntStore) scan(coll string, decode func(raw string)) error {
	prefix := coll + ":"
	return s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefix+"*", func(key, value string) bool {
			decode(value)
			return true
		})
	})
}

// applySpec runs generic filter/sort/skip/limit over an already-decoded
// slice; field-level filtering and sorting are done in Go (not pushed into
// BuntDB index expressions) to keep Spec backend-agnostic across BuntStore
// and MongoStore.
func applySpec[T any](items []T, spec Spec, fieldOf func(item T, field string) any) []T {
	if len(spec.Filter) > 0 {
		filtered := items[:0:0]
		for _, it := range items {
			match := true
			for field, want := range spec.Filter {
				if fmt.Sprint(fieldOf(it, field)) != fmt.Sprint(want) {
					match = false
					break
				}
			}
			if match {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}
	if len(spec.Sort) > 0 {
		sort.SliceStable(items, func(i, j int) bool {
			for _, key := range spec.Sort {
				desc := strings.HasPrefix(key, "-")
				key = strings.TrimPrefix(key, "-")
				a, b := fmt.Sprint(fieldOf(items[i], key)), fmt.Sprint(fieldOf(items[j], key))
				if a == b {
					continue
				}
				if desc {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	skip := spec.Skip
	if skip < 0 {
		skip = 0
	}
	if skip > len(items) {
		skip = len(items)
	}
	items = items[skip:]
	if spec.Limit > 0 && spec.Limit < len(items) {
		items = items[:spec.Limit]
	}
	return items
}

func (s *BuntStore) Flush(_ context.Context) error {
	return s.db.Update(func(tx *buntdb.Tx) error {
		var keys []string
		_ = tx.Ascend("", func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
		for _, k := range keys {
			_, _ = tx.Delete(k)
		}
		return nil
	})
}
