// Package pconfig parses a Maddyfile-style config file with
// framework/cfgparser and binds the result into a typed Config struct with
// framework/config.Map, the same reflection-based binder maddy itself uses
// for module configuration.
package pconfig

import (
	"crypto/tls"
	"fmt"
	"os"
	"time"

	cfgparser "github.com/ietf-svn-conversion/postconfirm/framework/cfgparser"
	"github.com/ietf-svn-conversion/postconfirm/framework/config"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
)

// Config is the bound, validated process configuration.
type Config struct {
	Listen string

	StateDir   string
	RuntimeDir string

	DBDriver string
	DBDSN    string

	SMTPHost string
	Hostname string

	MailTemplate string
	AdminAddress string

	BulkRegex          string
	AutoSubmittedRegex string

	ExemptRecipients []string

	ConfirmTTL time.Duration

	// TLSVersions is [min, max] as accepted by tls.Config; zero values let
	// crypto/tls pick its own defaults.
	TLSVersions [2]uint16
	TLSCiphers  []uint16

	// LogOutput is the configured process log target(s); nil means the
	// directive was absent and the default (stderr) stays in effect.
	LogOutput log.Output

	Debug bool
}

// TLSConfig builds the client-side tls.Config used to dial smtp_host,
// honoring the operator's smtp_tls_versions/smtp_tls_ciphers overrides.
func (c *Config) TLSConfig(serverName string) *tls.Config {
	return &tls.Config{
		ServerName:   serverName,
		MinVersion:   c.TLSVersions[0],
		MaxVersion:   c.TLSVersions[1],
		CipherSuites: c.TLSCiphers,
	}
}

// dbLegacy is the flat {name,user,password,host,port} shape the store
// connection was originally described with, still accepted alongside the
// {driver,dsn} shape when dsn is left unset.
type dbLegacy struct {
	name, user, password, host, port string
}

func (l dbLegacy) postgresDSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		l.host, l.port, l.name, l.user, l.password)
}

func (l dbLegacy) mysqlDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", l.user, l.password, l.host, l.port, l.name)
}

// bindDB resolves the "db" block's {driver,dsn} and legacy
// {name,user,password,host,port} forms into cfg.DBDriver/cfg.DBDSN, the dsn
// form taking precedence when both are present.
func bindDB(node config.Node, cfg *Config) error {
	var legacy dbLegacy
	var dsn string

	for _, child := range node.Children {
		if len(child.Args) != 1 {
			return config.NodeErr(child, "expected exactly 1 argument")
		}
		val := child.Args[0]
		switch child.Name {
		case "driver":
			cfg.DBDriver = val
		case "dsn":
			dsn = val
		case "name":
			legacy.name = val
		case "user":
			legacy.user = val
		case "password":
			legacy.password = val
		case "host":
			legacy.host = val
		case "port":
			legacy.port = val
		default:
			return config.NodeErr(child, "unknown directive in db block: %s", child.Name)
		}
	}

	if cfg.DBDriver == "" {
		return config.NodeErr(node, "db block requires a driver")
	}

	if dsn != "" {
		cfg.DBDSN = dsn
		return nil
	}

	switch cfg.DBDriver {
	case "postgres":
		cfg.DBDSN = legacy.postgresDSN()
	case "mysql":
		cfg.DBDSN = legacy.mysqlDSN()
	default:
		return config.NodeErr(node, "db block requires dsn for driver %s", cfg.DBDriver)
	}
	return nil
}

// Load reads and parses the config file at path, then binds it to a Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pconfig: open %s: %w", path, err)
	}
	defer f.Close()

	nodes, err := cfgparser.Read(f, path)
	if err != nil {
		return nil, fmt.Errorf("pconfig: parse %s: %w", path, err)
	}

	// The binder operates on a single block's Children; wrap the top-level
	// directive list in a synthetic root so config.Map can walk it exactly
	// like it would a module's inline configuration block.
	root := config.Node{Children: nodes}

	cfg := &Config{}
	m := config.NewMap(nil, root)

	m.String("listen", false, true, "", &cfg.Listen)
	m.String("state_dir", false, false, "/var/lib/postconfirm", &cfg.StateDir)
	m.String("runtime_dir", false, false, "/run/postconfirm", &cfg.RuntimeDir)
	m.Custom("db", false, true, nil, func(_ *config.Map, node config.Node) (interface{}, error) {
		return nil, bindDB(node, cfg)
	}, nil)
	m.String("smtp_host", false, true, "", &cfg.SMTPHost)
	m.String("hostname", false, false, "localhost.localdomain", &cfg.Hostname)
	m.String("mail_template", false, true, "", &cfg.MailTemplate)
	m.String("admin_address", false, true, "", &cfg.AdminAddress)
	m.String("bulk_regex", false, false, "", &cfg.BulkRegex)
	m.String("auto_submitted_regex", false, false, "", &cfg.AutoSubmittedRegex)
	m.StringList("exempt_recipients", false, false, nil, &cfg.ExemptRecipients)
	m.Duration("confirm_ttl_seconds", false, false, 0, &cfg.ConfirmTTL)
	m.Custom("smtp_tls_versions", false, false, func() (interface{}, error) {
		return [2]uint16{0, 0}, nil
	}, config.TLSVersionsDirective, &cfg.TLSVersions)
	m.Custom("smtp_tls_ciphers", false, false, func() (interface{}, error) {
		return []uint16(nil), nil
	}, config.TLSCiphersDirective, &cfg.TLSCiphers)
	m.Custom("log", false, false, func() (interface{}, error) {
		return log.Output(nil), nil
	}, logOutput, &cfg.LogOutput)
	m.Bool("debug", false, false, &cfg.Debug)

	if _, err := m.Process(); err != nil {
		return nil, fmt.Errorf("pconfig: %w", err)
	}

	return cfg, nil
}
