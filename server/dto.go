package server

import "github.com/oscied/orchestrator/store"

// userView is the client-facing projection of store.User with Secret
// stripped; no route ever serializes a store.User directly (spec §6: "the
// authed user (no secret)").
type userView struct {
	ID            string `json:"_id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Mail          string `json:"mail"`
	AdminPlatform bool   `json:"admin_platform"`
}

func toUserView(u *store.User) userView {
	return userView{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Mail: u.Mail, AdminPlatform: u.AdminPlatform}
}

func toUserViews(users []*store.User) []userView {
	out := make([]userView, len(users))
	for i, u := range users {
		out[i] = toUserView(u)
	}
	return out
}
