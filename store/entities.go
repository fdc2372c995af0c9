// Package store persists the orchestrator's domain entities in a document
// collection and enforces the uniqueness contracts named in the
// specification: User.mail, Media.uri, TransformProfile.title.
//
// Grounded on the teacher's own embedded document store
// (ais/target.go: dbdriver.NewBuntDB) for the in-memory/mock backend, and on
// go.mongodb.org/mongo-driver (paired with streadway/amqp in the
// evalgo-org-eve retrieval-pack repo, the same pairing this module uses) for
// the production backend. Both backends implement the Store interface
// declared in store.go.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package store

import (
	"time"

	"github.com/oscied/orchestrator/cmn"
)

type MediaStatus string

const (
	MediaPending MediaStatus = "PENDING"
	MediaReady   MediaStatus = "READY"
	MediaDeleted MediaStatus = "DELETED"
)

type TaskStatus string

const (
	TaskPending  TaskStatus = "PENDING"
	TaskProgress TaskStatus = "PROGRESS"
	TaskSuccess  TaskStatus = "SUCCESS"
	TaskFailure  TaskStatus = "FAILURE"
	TaskRevoked  TaskStatus = "REVOKED"
	// TaskRevoking is PublisherTask-only: SUCCESS -> REVOKING -> REVOKED.
	TaskRevoking TaskStatus = "REVOKING"
)

// Terminal reports whether status admits no further transitions except the
// SUCCESS->REVOKING->REVOKED side channel handled explicitly by callers.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSuccess, TaskFailure, TaskRevoked:
		return true
	default:
		return false
	}
}

// User is a platform account. Secret is always a bcrypt hash and is never
// serialized back to a client (server routes return the userView DTO from
// server/dto.go, which omits it — store keeps the hash on the Go struct).
type User struct {
	ID            string `json:"_id" bson:"_id"`
	FirstName     string `json:"first_name" bson:"first_name"`
	LastName      string `json:"last_name" bson:"last_name"`
	Mail          string `json:"mail" bson:"mail"`
	Secret        string `json:"secret" bson:"secret"`
	AdminPlatform bool   `json:"admin_platform" bson:"admin_platform"`
}

// Media is a shared-storage asset plus lifecycle state. Metadata always
// contains "title"; "add_date", "size", "duration" are system-augmented.
type Media struct {
	ID         string            `json:"_id" bson:"_id"`
	UserID     string            `json:"user_id" bson:"user_id"`
	ParentID   string            `json:"parent_id,omitempty" bson:"parent_id,omitempty"`
	URI        string            `json:"uri" bson:"uri"`
	PublicURIs map[string]string `json:"public_uris" bson:"public_uris"` // task id -> URL
	Filename   string            `json:"filename" bson:"filename"`
	Metadata   map[string]any    `json:"metadata" bson:"metadata"`
	Status     MediaStatus       `json:"status" bson:"status"`
}

// TransformProfile is an immutable-once-referenced encoder configuration.
type TransformProfile struct {
	ID            string `json:"_id" bson:"_id"`
	Title         string `json:"title" bson:"title"`
	Description   string `json:"description" bson:"description"`
	EncoderName   string `json:"encoder_name" bson:"encoder_name"`
	EncoderString string `json:"encoder_string" bson:"encoder_string"`
}

// TaskStatistic is the append-only statistics bag carried by both task
// kinds; keys mirror spec §3 exactly (add_date, start_date, elapsed_time,
// eta_time, percent, media_in_size, media_in_duration, media_out_size,
// media_out_duration, error_details).
type TaskStatistic map[string]any

// SetTime stores t in the same "YYYY-MM-DD HH:MM" layout REST clients see
// everywhere else, so a statistic bag round-trips through JSON unchanged.
func (s TaskStatistic) SetTime(key string, t time.Time) { s[key] = cmn.FormatTime(t) }

// TransformTask tracks one asynchronous transcode job.
type TransformTask struct {
	ID         string        `json:"_id" bson:"_id"` // worker-assigned task id
	UserID     string        `json:"user_id" bson:"user_id"`
	MediaInID  string        `json:"media_in_id" bson:"media_in_id"`
	MediaOutID string        `json:"media_out_id" bson:"media_out_id"`
	ProfileID  string        `json:"profile_id" bson:"profile_id"`
	SendEmail  bool          `json:"send_email" bson:"send_email"`
	Revoked    bool          `json:"revoked" bson:"revoked"`
	Status     TaskStatus    `json:"status" bson:"status"`
	Statistic  TaskStatistic `json:"statistic" bson:"statistic"`
}

// PublisherTask tracks one asynchronous publication job.
type PublisherTask struct {
	ID           string        `json:"_id" bson:"_id"`
	UserID       string        `json:"user_id" bson:"user_id"`
	MediaID      string        `json:"media_id" bson:"media_id"`
	SendEmail    bool          `json:"send_email" bson:"send_email"`
	Status       TaskStatus    `json:"status" bson:"status"`
	PublishURI   string        `json:"publish_uri,omitempty" bson:"publish_uri,omitempty"`
	RevokeTaskID string        `json:"revoke_task_id,omitempty" bson:"revoke_task_id,omitempty"`
	Statistic    TaskStatistic `json:"statistic" bson:"statistic"`
}

// Environment is a named cloud/region target that owns a fleet of worker
// units; unit lifecycle itself is owned by the capacity controller
// (package capacity), not persisted here.
type Environment struct {
	Name          string            `json:"name" bson:"name"`
	Type          string            `json:"type" bson:"type"` // "aws" | "gce" | "k8s" | "mock"
	Region        string            `json:"region" bson:"region"`
	Credentials   map[string]string `json:"credentials" bson:"credentials"`
	ControlBucket string            `json:"control_bucket" bson:"control_bucket"`
}
