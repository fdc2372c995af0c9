package cmn

import "strings"

// URLPath is a named REST path, kept both as its joined string form (for
// http.ServeMux registration) and as its word slice (for path-segment
// parsing), mirroring the teacher's cmn.URLPath/urlpath() pair.
type URLPath struct {
	L []string
	S string
}

func urlpath(words ...string) URLPath { return URLPath{L: words, S: "/" + strings.Join(words, "/")} }

const (
	Version  = "v1"
	Users    = "user"
	Medias   = "media"
	Profiles = "profile"
	Tasks    = "task"
	Environments = "environment"
	Transform = "transform"
	Publisher = "publisher"
	Callback  = "callback"
	RevokeCallback = "revoke/callback"
	Unit      = "unit"
	Queue     = "queue"
	ID        = "id"
	Count     = "count"
	Login     = "login"
	Flush     = "flush"
	Index     = "index"
)

var (
	URLPathIndex = urlpath(Index)
	URLPathFlush = urlpath(Flush)

	URLPathUser       = urlpath(Version, Users)
	URLPathUserLogin  = urlpath(Version, Users, Login)
	URLPathUserCount  = urlpath(Version, Users, Count)
	URLPathUserID     = urlpath(Version, Users, ID)

	URLPathMedia      = urlpath(Version, Medias)
	URLPathMediaCount = urlpath(Version, Medias, Count)
	URLPathMediaID    = urlpath(Version, Medias, ID)

	URLPathEnvironment = urlpath(Version, Environments)

	URLPathTransformProfile      = urlpath(Version, Transform, Profiles)
	URLPathTransformProfileCount = urlpath(Version, Transform, Profiles, Count)
	URLPathTransformProfileID    = urlpath(Version, Transform, Profiles, ID)
	URLPathTransformQueue   = urlpath(Version, Transform, Queue)
	URLPathTransformTask    = urlpath(Version, Transform, Tasks)
	URLPathTransformTaskCount = urlpath(Version, Transform, Tasks, Count)
	URLPathTransformTaskID    = urlpath(Version, Transform, Tasks, ID)
	URLPathTransformUnit    = urlpath(Version, Transform, Unit)
	URLPathTransformCallback = urlpath(Version, Transform, Callback)

	URLPathPublisherUnit     = urlpath(Version, Publisher, Unit)
	URLPathPublisherTask     = urlpath(Version, Publisher, Tasks)
	URLPathPublisherTaskCount = urlpath(Version, Publisher, Tasks, Count)
	URLPathPublisherTaskID    = urlpath(Version, Publisher, Tasks, ID)
	URLPathPublisherCallback = urlpath(Version, Publisher, Callback)
	URLPathPublisherRevokeCallback = urlpath(Version, Publisher, RevokeCallback)
)
