// Package main is the orchestrator daemon executable: load config, wire
// every component, and run the HTTP server alongside the capacity,
// observer, and task-janitor control loops until one of them exits (spec
// §5, §7).
//
// Grounded on the teacher's cmd/aisnodeprofile/main.go: a minimal flag-only
// main() that delegates immediately to a run() int, so profiling/exit-code
// plumbing never tangles with the actual daemon logic.
/*
 * Copyright (c) 2026, OSCIED Project. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/oscied/orchestrator/authn"
	"github.com/oscied/orchestrator/blobstore"
	"github.com/oscied/orchestrator/callback"
	"github.com/oscied/orchestrator/capacity"
	"github.com/oscied/orchestrator/cmn"
	"github.com/oscied/orchestrator/dispatch"
	"github.com/oscied/orchestrator/janitor"
	"github.com/oscied/orchestrator/notify"
	"github.com/oscied/orchestrator/observer"
	"github.com/oscied/orchestrator/queue"
	"github.com/oscied/orchestrator/server"
	"github.com/oscied/orchestrator/store"
)

var configPath = flag.String("config", "", "path to the orchestrator JSON config file")

const (
	tickInterval  = 30 * time.Second
	janitorGrace  = 10 * time.Minute
	httpRunnerTag = "http"
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	cfg, err := cmn.LoadConfig(*configPath)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Store.MongoAdminConnection)
	if err != nil {
		log.Printf("store: %v", err)
		return 1
	}
	defer st.Close()

	if err := bootstrapRoot(ctx, st, cfg.Auth.RootSecret); err != nil {
		log.Printf("bootstrap: %v", err)
		return 1
	}

	var q queue.JobQueue
	if cfg.Queue.RabbitConnection == "" {
		log.Printf("queue: rabbit_connection is empty")
		return 1
	}
	q, err = queue.Dial(cfg.Queue.RabbitConnection, cfg.Queue.Queues)
	if err != nil {
		log.Printf("queue: %v", err)
		return 1
	}

	blobs, err := blobstore.Open(ctx, cfg.Storage.URI)
	if err != nil {
		log.Printf("blobstore: %v", err)
		return 1
	}

	environments, err := st.FindEnvironments(ctx, store.Spec{})
	if err != nil {
		log.Printf("environments: %v", err)
		return 1
	}
	adapter, tables, services, err := buildCapacity(ctx, environments)
	if err != nil {
		log.Printf("capacity: %v", err)
		return 1
	}

	auth := authn.New(cfg.Auth.RootSecret, cfg.Auth.NodeSecret, st)
	disp := dispatch.New(st, q, blobs)
	notifier := notify.New(cfg.Email)
	cb := callback.New(st, blobs, notifier)
	capController := capacity.NewController(adapter, tables, services)
	obs := observer.New(adapter, tables, services, st)
	jan := janitor.New(st, janitorGrace)
	srv := server.New(auth, st, disp, cb, capController, obs, q, blobs, cfg)

	httpSrv := &http.Server{Addr: cfg.API.URL, Handler: srv.Handler()}

	group := cmn.NewRunGroup()
	group.Add(newTickerRunner("capacity", func(c context.Context) error {
		return capController.Run(c, tickInterval, hourOfDay)
	}))
	group.Add(newTickerRunner("observer", func(c context.Context) error {
		return obs.Run(c, tickInterval, hourOfDay)
	}))
	group.Add(newTickerRunner("janitor", func(c context.Context) error {
		return jan.Run(c, tickInterval)
	}))
	group.Add(newHTTPRunner(httpSrv))

	if err := group.Run(); err != nil {
		log.Printf("daemon exited: %v", err)
		return 1
	}
	return 0
}

func hourOfDay(t time.Time) int { return t.UTC().Hour() }

// buildCapacity constructs one Adapter per store.Environment.Type and
// registers each under capacity.MultiAdapter so a single Controller and
// Observer can reconcile a mixed-cloud fleet (capacity/multi.go).
func buildCapacity(ctx context.Context, environments []*store.Environment) (capacity.Adapter, map[string]*capacity.EventTable, []string, error) {
	multi := capacity.NewMultiAdapter()
	tables := map[string]*capacity.EventTable{}
	services := []string{"transform", "publisher"}

	for _, env := range environments {
		var a capacity.Adapter
		var err error
		switch env.Type {
		case "aws":
			a, err = capacity.NewEC2Adapter(env.Region, env.Credentials["ami_id"], env.Credentials["subnet_id"], env.Credentials["instance_type"])
		case "gce":
			a, err = capacity.NewGCEAdapter(ctx, env.Credentials["project"], env.Region)
		case "k8s":
			err = cmn.NewNotImplemented("kubernetes adapter requires an in-cluster client, wire it in buildCapacity for your deployment")
		default:
			a = capacity.NewMockAdapter()
		}
		if err != nil {
			return nil, nil, nil, err
		}
		multi.Register(env.Name, a)
		tables[env.Name] = capacity.NewEventTable() // empty: zero desired units until an admin populates one
	}
	return multi, tables, services, nil
}

// bootstrapRoot mints the initial root/admin_platform user the first time
// the daemon boots against an empty store, mirroring orchestra.py's
// first-run bootstrap (SPEC_FULL.md supplemented feature #3).
func bootstrapRoot(ctx context.Context, st store.Store, rootSecret string) error {
	count, err := st.CountUsers(ctx, store.Spec{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hashed, err := authn.HashSecret(rootSecret)
	if err != nil {
		return err
	}
	root := &store.User{
		FirstName:     "root",
		LastName:      "root",
		Mail:          "root@localhost",
		Secret:        hashed,
		AdminPlatform: true,
	}
	return st.InsertUser(ctx, root)
}

// tickerRunner adapts a ctx-cancellable loop function to cmn.Runner: it
// owns the CancelFunc so Stop can unblock Run without a second signal.
type tickerRunner struct {
	name   string
	loop   func(context.Context) error
	cancel context.CancelFunc
}

func newTickerRunner(name string, loop func(context.Context) error) *tickerRunner {
	return &tickerRunner{name: name, loop: loop}
}

func (t *tickerRunner) Name() string { return t.name }

func (t *tickerRunner) Run() error {
	var ctx context.Context
	ctx, t.cancel = context.WithCancel(context.Background())
	return t.loop(ctx)
}

func (t *tickerRunner) Stop(error) {
	if t.cancel != nil {
		t.cancel()
	}
}

// httpRunner adapts *http.Server to cmn.Runner.
type httpRunner struct {
	srv *http.Server
}

func newHTTPRunner(srv *http.Server) *httpRunner { return &httpRunner{srv: srv} }

func (h *httpRunner) Name() string { return httpRunnerTag }

func (h *httpRunner) Run() error {
	if err := h.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (h *httpRunner) Stop(error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = h.srv.Shutdown(ctx)
}
