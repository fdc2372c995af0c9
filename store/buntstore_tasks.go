package store

import (
	"context"

	"github.com/oscied/orchestrator/cmn"
)

func xformField(t *TransformTask, field string) any {
	switch field {
	case "user_id":
		return t.UserID
	case "media_in_id":
		return t.MediaInID
	case "media_out_id":
		return t.MediaOutID
	case "profile_id":
		return t.ProfileID
	case "status":
		return t.Status
	case "_id":
		return t.ID
	case "statistic.add_date":
		return t.Statistic["add_date"]
	default:
		return nil
	}
}

// ---- TransformTask ----
// TransformTask._id is the worker-assigned task identifier (§3), so
// InsertTransformTask never generates an id the way InsertUser/Media do.

func (s *BuntStore) InsertTransformTask(_ context.Context, t *TransformTask) error {
	if t.ID == "" {
		return cmn.NewInvalidRequest("task id is required")
	}
	if t.Statistic == nil {
		t.Statistic = TaskStatistic{}
	}
	return s.insert(collXformTasks, t.ID, t, nil)
}

func (s *BuntStore) FindTransformTaskByID(_ context.Context, id string) (*TransformTask, error) {
	var t TransformTask
	ok, err := s.get(collXformTasks, id, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *BuntStore) FindTransformTasks(_ context.Context, spec Spec) ([]*TransformTask, error) {
	var all []*TransformTask
	err := s.scan(collXformTasks, func(raw string) {
		var t TransformTask
		if cmn.Unmarshal([]byte(raw), &t) == nil {
			all = append(all, &t)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"-statistic.add_date"}
	}
	return applySpec(all, spec, xformField), nil
}

func (s *BuntStore) CountTransformTasks(ctx context.Context, spec Spec) (int, error) {
	t, err := s.FindTransformTasks(ctx, Spec{Filter: spec.Filter})
	return len(t), err
}

func (s *BuntStore) UpdateTransformTask(_ context.Context, t *TransformTask) error {
	return s.update(collXformTasks, t.ID, t, nil, nil)
}

func (s *BuntStore) DeleteTransformTask(_ context.Context, id string) error {
	return s.delete(collXformTasks, id, nil)
}

// ---- PublisherTask ----

func pubField(t *PublisherTask, field string) any {
	switch field {
	case "user_id":
		return t.UserID
	case "media_id":
		return t.MediaID
	case "status":
		return t.Status
	case "_id":
		return t.ID
	case "statistic.add_date":
		return t.Statistic["add_date"]
	default:
		return nil
	}
}

func (s *BuntStore) InsertPublisherTask(_ context.Context, t *PublisherTask) error {
	if t.ID == "" {
		return cmn.NewInvalidRequest("task id is required")
	}
	if t.Statistic == nil {
		t.Statistic = TaskStatistic{}
	}
	return s.insert(collPubTasks, t.ID, t, nil)
}

func (s *BuntStore) FindPublisherTaskByID(_ context.Context, id string) (*PublisherTask, error) {
	var t PublisherTask
	ok, err := s.get(collPubTasks, id, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *BuntStore) FindPublisherTasks(_ context.Context, spec Spec) ([]*PublisherTask, error) {
	var all []*PublisherTask
	err := s.scan(collPubTasks, func(raw string) {
		var t PublisherTask
		if cmn.Unmarshal([]byte(raw), &t) == nil {
			all = append(all, &t)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"-statistic.add_date"}
	}
	return applySpec(all, spec, pubField), nil
}

func (s *BuntStore) CountPublisherTasks(ctx context.Context, spec Spec) (int, error) {
	t, err := s.FindPublisherTasks(ctx, Spec{Filter: spec.Filter})
	return len(t), err
}

func (s *BuntStore) UpdatePublisherTask(_ context.Context, t *PublisherTask) error {
	return s.update(collPubTasks, t.ID, t, nil, nil)
}

func (s *BuntStore) DeletePublisherTask(_ context.Context, id string) error {
	return s.delete(collPubTasks, id, nil)
}

// ---- Environment ----

func envField(e *Environment, field string) any {
	switch field {
	case "name":
		return e.Name
	case "type":
		return e.Type
	default:
		return nil
	}
}

func (s *BuntStore) InsertEnvironment(_ context.Context, e *Environment) error {
	if e.Name == "" {
		return cmn.NewInvalidRequest("name is required")
	}
	return s.insert(collEnvironments, e.Name, e, map[string]string{"name": e.Name})
}

func (s *BuntStore) FindEnvironmentByName(_ context.Context, name string) (*Environment, error) {
	var e Environment
	ok, err := s.get(collEnvironments, name, &e)
	if err != nil || !ok {
		return nil, err
	}
	return &e, nil
}

func (s *BuntStore) FindEnvironments(_ context.Context, spec Spec) ([]*Environment, error) {
	var all []*Environment
	err := s.scan(collEnvironments, func(raw string) {
		var e Environment
		if cmn.Unmarshal([]byte(raw), &e) == nil {
			all = append(all, &e)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"name"}
	}
	return applySpec(all, spec, envField), nil
}

func (s *BuntStore) DeleteEnvironment(_ context.Context, name string) error {
	return s.delete(collEnvironments, name, map[string]string{"name": name})
}
