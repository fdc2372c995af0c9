package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/oscied/orchestrator/cmn"
)

func newID() string { return uuid.New().String() }

func userUniques(u *User) map[string]string { return map[string]string{"mail": strings.ToLower(u.Mail)} }
func mediaUniques(m *Media) map[string]string {
	if m.URI == "" {
		return nil
	}
	return map[string]string{"uri": m.URI}
}
func profileUniques(p *TransformProfile) map[string]string { return map[string]string{"title": p.Title} }

func userField(u *User, field string) any {
	switch field {
	case "mail":
		return u.Mail
	case "last_name":
		return u.LastName
	case "first_name":
		return u.FirstName
	case "_id":
		return u.ID
	default:
		return nil
	}
}

// ---- User ----

func (s *BuntStore) InsertUser(_ context.Context, u *User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.Mail == "" {
		return cmn.NewInvalidRequest("mail is required")
	}
	return s.insert(collUsers, u.ID, u, userUniques(u))
}

func (s *BuntStore) FindUserByID(_ context.Context, id string) (*User, error) {
	var u User
	ok, err := s.get(collUsers, id, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (s *BuntStore) FindUserByMail(_ context.Context, mail string) (*User, error) {
	var found *User
	err := s.scan(collUsers, func(raw string) {
		if found != nil {
			return
		}
		var u User
		if cmn.Unmarshal([]byte(raw), &u) == nil && strings.EqualFold(u.Mail, mail) {
			found = &u
		}
	})
	return found, err
}

func (s *BuntStore) FindUsers(_ context.Context, spec Spec) ([]*User, error) {
	var all []*User
	err := s.scan(collUsers, func(raw string) {
		var u User
		if cmn.Unmarshal([]byte(raw), &u) == nil {
			all = append(all, &u)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"last_name", "first_name"}
	}
	return applySpec(all, spec, userField), nil
}

func (s *BuntStore) CountUsers(ctx context.Context, spec Spec) (int, error) {
	users, err := s.FindUsers(ctx, Spec{Filter: spec.Filter})
	return len(users), err
}

func (s *BuntStore) UpdateUser(_ context.Context, u *User) error {
	prev, err := s.FindUserByID(context.Background(), u.ID)
	if err != nil {
		return err
	}
	var prevUniques map[string]string
	if prev != nil {
		prevUniques = userUniques(prev)
	}
	return s.update(collUsers, u.ID, u, userUniques(u), prevUniques)
}

func (s *BuntStore) DeleteUser(_ context.Context, id string) error {
	prev, err := s.FindUserByID(context.Background(), id)
	if err != nil || prev == nil {
		return err
	}
	return s.delete(collUsers, id, userUniques(prev))
}

// ---- Media ----

func mediaField(m *Media, field string) any {
	switch field {
	case "user_id":
		return m.UserID
	case "parent_id":
		return m.ParentID
	case "uri":
		return m.URI
	case "status":
		return m.Status
	case "_id":
		return m.ID
	case "metadata.title":
		if m.Metadata != nil {
			return m.Metadata["title"]
		}
		return nil
	default:
		return nil
	}
}

func (s *BuntStore) InsertMedia(_ context.Context, m *Media) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Metadata == nil || m.Metadata["title"] == nil || m.Metadata["title"] == "" {
		return cmn.NewInvalidRequest("metadata.title is required")
	}
	if m.PublicURIs == nil {
		m.PublicURIs = map[string]string{}
	}
	return s.insert(collMedias, m.ID, m, mediaUniques(m))
}

func (s *BuntStore) FindMediaByID(_ context.Context, id string) (*Media, error) {
	var m Media
	ok, err := s.get(collMedias, id, &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

func (s *BuntStore) FindMediaByURI(_ context.Context, uri string) (*Media, error) {
	var found *Media
	err := s.scan(collMedias, func(raw string) {
		if found != nil {
			return
		}
		var m Media
		if cmn.Unmarshal([]byte(raw), &m) == nil && m.URI == uri {
			found = &m
		}
	})
	return found, err
}

func (s *BuntStore) FindMedias(_ context.Context, spec Spec) ([]*Media, error) {
	var all []*Media
	err := s.scan(collMedias, func(raw string) {
		var m Media
		if cmn.Unmarshal([]byte(raw), &m) == nil {
			all = append(all, &m)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"metadata.title"}
	}
	return applySpec(all, spec, mediaField), nil
}

func (s *BuntStore) CountMedias(ctx context.Context, spec Spec) (int, error) {
	m, err := s.FindMedias(ctx, Spec{Filter: spec.Filter})
	return len(m), err
}

func (s *BuntStore) UpdateMedia(_ context.Context, m *Media) error {
	prev, err := s.FindMediaByID(context.Background(), m.ID)
	if err != nil {
		return err
	}
	var prevUniques map[string]string
	if prev != nil {
		prevUniques = mediaUniques(prev)
	}
	return s.update(collMedias, m.ID, m, mediaUniques(m), prevUniques)
}

func (s *BuntStore) DeleteMedia(_ context.Context, id string) error {
	prev, err := s.FindMediaByID(context.Background(), id)
	if err != nil || prev == nil {
		return err
	}
	return s.delete(collMedias, id, mediaUniques(prev))
}

// ---- TransformProfile ----

func profileField(p *TransformProfile, field string) any {
	switch field {
	case "title":
		return p.Title
	case "encoder_name":
		return p.EncoderName
	case "_id":
		return p.ID
	default:
		return nil
	}
}

func (s *BuntStore) InsertProfile(_ context.Context, p *TransformProfile) error {
	if p.ID == "" {
		p.ID = newID()
	}
	if p.Title == "" {
		return cmn.NewInvalidRequest("title is required")
	}
	return s.insert(collProfiles, p.ID, p, profileUniques(p))
}

func (s *BuntStore) FindProfileByID(_ context.Context, id string) (*TransformProfile, error) {
	var p TransformProfile
	ok, err := s.get(collProfiles, id, &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (s *BuntStore) FindProfiles(_ context.Context, spec Spec) ([]*TransformProfile, error) {
	var all []*TransformProfile
	err := s.scan(collProfiles, func(raw string) {
		var p TransformProfile
		if cmn.Unmarshal([]byte(raw), &p) == nil {
			all = append(all, &p)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(spec.Sort) == 0 {
		spec.Sort = []string{"encoder_name", "title"}
	}
	return applySpec(all, spec, profileField), nil
}

func (s *BuntStore) CountProfiles(ctx context.Context, spec Spec) (int, error) {
	p, err := s.FindProfiles(ctx, Spec{Filter: spec.Filter})
	return len(p), err
}

func (s *BuntStore) UpdateProfile(_ context.Context, p *TransformProfile) error {
	prev, err := s.FindProfileByID(context.Background(), p.ID)
	if err != nil {
		return err
	}
	var prevUniques map[string]string
	if prev != nil {
		prevUniques = profileUniques(prev)
	}
	return s.update(collProfiles, p.ID, p, profileUniques(p), prevUniques)
}

func (s *BuntStore) DeleteProfile(_ context.Context, id string) error {
	prev, err := s.FindProfileByID(context.Background(), id)
	if err != nil || prev == nil {
		return err
	}
	return s.delete(collProfiles, id, profileUniques(prev))
}
