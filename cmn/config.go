package cmn

import (
	"os"
	"time"

	"github.com/pkg/errors"
)

// Config encapsulates every option recognized by the orchestrator daemon.
// Naming/grouping follows the teacher's ClusterConfig/LocalConfig
// composition: small, named sub-configs, each independently loadable and
// independently defaulted.
type (
	Config struct {
		Store   StoreConf   `json:"store"`
		Queue   QueueConf   `json:"queue"`
		Auth    AuthConf    `json:"auth"`
		API     APIConf     `json:"api"`
		Email   EmailConf   `json:"email"`
		Storage StorageConf `json:"storage"`
		Charms  CharmsConf  `json:"charms"`
		Log     LogConf     `json:"log"`
		Timeout TimeoutConf `json:"timeout"`
	}

	StoreConf struct {
		// MongoAdminConnection is the document-store DSN. Empty selects the
		// embedded BuntDB-backed mock store (see store.NewBuntStore).
		MongoAdminConnection string `json:"mongo_admin_connection"`
	}

	QueueConf struct {
		// RabbitConnection is the AMQP DSN. Empty is a fatal startup error
		// (spec: "empty ⇒ fail at startup" — no mock fallback in production
		// wiring; tests construct queue.NewMockQueue directly instead).
		RabbitConnection string `json:"rabbit_connection"`
		// Queues lists every transform/publisher queue name the orchestrator
		// accepts launches against; queue.Dial declares each of these up
		// front so a fresh broker connection can serve a launch immediately,
		// rather than only after some earlier Submit happened to declare it.
		Queues []string `json:"queues"`
	}

	AuthConf struct {
		RootSecret string `json:"root_secret"`
		NodeSecret string `json:"node_secret"`
	}

	APIConf struct {
		URL string `json:"api_url"`
	}

	EmailConf struct {
		Server   string `json:"email_server"`
		TLS      bool   `json:"email_tls"`
		Address  string `json:"email_address"`
		Username string `json:"email_username"`
		Password string `json:"email_password"`
	}

	StorageConf struct {
		URI string `json:"storage_uri"` // shared-storage mount, e.g. glusterfs://host/mount
	}

	CharmsConf struct {
		Release      string `json:"charms_release"`
		Repository   string `json:"charms_repository"`
		JujuConfig   string `json:"juju_config_file"`
	}

	LogConf struct {
		Verbose  bool   `json:"verbose"`
		LevelStr string `json:"log_level"`
	}

	// TimeoutConf holds the default timeout setting. LoadConfig parses and
	// validates it into Default; no component reads Default, so queue
	// submission, store calls, cluster-adapter calls and shared-storage
	// rename/probe are not bounded by it.
	TimeoutConf struct {
		DefaultStr string `json:"default_timeout"`
		// omit: parsed form, never serialized
		Default time.Duration `json:"-"`
	}
)

// Enabled reports whether outbound email notifications are configured.
func (e EmailConf) Enabled() bool { return e.Server != "" }

// Mock reports whether the store should run in embedded/mock mode.
func (s StoreConf) Mock() bool { return s.MongoAdminConnection == "" }

// DefaultConfig returns the hard-coded defaults applied before a config file
// is overlaid, matching the teacher's pattern of an explicit-defaults struct
// rather than zero-value reliance.
func DefaultConfig() *Config {
	return &Config{
		Auth:  AuthConf{RootSecret: "root", NodeSecret: "node"},
		Queue: QueueConf{Queues: []string{"transform", "publisher"}},
		Log:   LogConf{LevelStr: "info"},
		Timeout: TimeoutConf{
			DefaultStr: "10s",
			Default:    10 * time.Second,
		},
	}
}

// LoadConfig reads path (if non-empty) over the defaults and re-parses the
// derived duration fields, mirroring cmn.LoadConfig's two-phase
// read-then-derive approach for Str/parsed duration pairs.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
		if err := Unmarshal(b, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finalize() error {
	if c.Timeout.DefaultStr == "" {
		c.Timeout.DefaultStr = "10s"
	}
	d, err := time.ParseDuration(c.Timeout.DefaultStr)
	if err != nil {
		return errors.Wrapf(err, "invalid timeout.default_timeout %q", c.Timeout.DefaultStr)
	}
	c.Timeout.Default = d
	return nil
}
