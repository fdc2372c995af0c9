// Package authn resolves HTTP Basic credentials into exactly one principal
// kind (root, node, or user) and evaluates the per-route predicate set that
// decides whether that principal may proceed.
//
// Grounded on the teacher's authn/utils.go (User/Role/Token and its
// aclForCluster/aclForBucket disjunctive ACL checks), generalized here to
// the three fixed principal kinds from the specification instead of
// AIStore's cluster/bucket role model.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package authn

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/store"
)

type Kind int

const (
	KindRoot Kind = iota
	KindNode
	KindUser
)

// Principal is the resolved identity of an authenticated request.
type Principal struct {
	Kind Kind
	User *store.User // non-nil only when Kind == KindUser
}

func (p Principal) IsRoot() bool { return p.Kind == KindRoot }
func (p Principal) IsNode() bool { return p.Kind == KindNode }
func (p Principal) IsUser() bool { return p.Kind == KindUser }

// Predicate is evaluated against a resolved Principal; the first predicate
// in a route's list that returns true short-circuits the chain and admits
// the request (spec §4.1: "evaluated left-to-right; the first match
// short-circuits").
type Predicate func(p Principal) bool

func AllowRoot() Predicate { return func(p Principal) bool { return p.IsRoot() } }
func AllowNode() Predicate { return func(p Principal) bool { return p.IsNode() } }
func AllowAny() Predicate  { return func(Principal) bool { return true } }

// Role admits a user principal that has the named boolean attribute set,
// e.g. Role("admin_platform").
func Role(attr string) Predicate {
	return func(p Principal) bool {
		if !p.IsUser() {
			return false
		}
		switch attr {
		case "admin_platform":
			return p.User.AdminPlatform
		default:
			return false
		}
	}
}

// SelfID admits a user principal whose ID equals id.
func SelfID(id string) Predicate {
	return func(p Principal) bool { return p.IsUser() && p.User.ID == id }
}

// Mail admits a user principal with the given mail address.
func Mail(addr string) Predicate {
	return func(p Principal) bool {
		return p.IsUser() && strings.EqualFold(p.User.Mail, addr)
	}
}

// Authenticator resolves Basic credentials against the configured root/node
// secrets and the user store.
type Authenticator struct {
	rootSecret string
	nodeSecret string
	users      store.UserFinder
}

// UserFinder is the slice of store.Store that credential resolution needs;
// kept narrow so authn does not import the full store surface.
func New(rootSecret, nodeSecret string, users store.UserFinder) *Authenticator {
	return &Authenticator{rootSecret: rootSecret, nodeSecret: nodeSecret, users: users}
}

const rootName = "root"
const nodeName = "node"

// Resolve extracts Basic credentials from r and classifies them into one of
// the three principal kinds. It never itself applies a route's predicates —
// callers invoke Authorize for that.
func (a *Authenticator) Resolve(r *http.Request) (Principal, error) {
	name, secret, ok := r.BasicAuth()
	if !ok {
		return Principal{}, cmn.NewAuthMissing("missing HTTP Basic credentials")
	}
	switch name {
	case rootName:
		if secret != a.rootSecret {
			return Principal{}, cmn.NewAuthMissing("bad root credentials")
		}
		return Principal{Kind: KindRoot}, nil
	case nodeName:
		if secret != a.nodeSecret {
			return Principal{}, cmn.NewAuthMissing("bad node credentials")
		}
		return Principal{Kind: KindNode}, nil
	default:
		u, err := a.users.FindUserByMail(r.Context(), name)
		if err != nil || u == nil {
			return Principal{}, cmn.NewAuthMissing("bad user credentials")
		}
		if bcrypt.CompareHashAndPassword([]byte(u.Secret), []byte(secret)) != nil {
			return Principal{}, cmn.NewAuthMissing("bad user credentials")
		}
		return Principal{Kind: KindUser, User: u}, nil
	}
}

// Authorize resolves r's credentials and checks them against preds in
// order. Absent/bad credentials yield AuthMissing (401); credentials that
// resolve but satisfy no predicate yield AuthRefused (403), per spec §4.1.
func (a *Authenticator) Authorize(r *http.Request, preds ...Predicate) (Principal, error) {
	p, err := a.Resolve(r)
	if err != nil {
		return Principal{}, err
	}
	for _, pred := range preds {
		if pred(p) {
			return p, nil
		}
	}
	return Principal{}, cmn.NewAuthRefused("insufficient permissions")
}

// HashSecret hashes a plaintext user secret for storage; User.secret is
// never returned to clients and never compared in plaintext.
func HashSecret(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(b), err
}
