// Package config handles loading, resolving, and securely writing the
// Lantern server configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	// EnvConfigPath overrides the config file location. The named file must
	// exist when the variable is set.
	EnvConfigPath = "GIT_LANTERN_CONFIG"
	// EnvServer overrides the server selection.
	EnvServer = "LANTERN_SERVER"
)

// Org is a per-organization token override for GitHub servers.
type Org struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// Server is one named forge entry in the config file. The name is the map
// key in the document; Name is filled in when an entry is selected.
type Server struct {
	Name     string            `json:"-" yaml:"-"`
	Provider string            `json:"provider,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	User     string            `json:"user,omitempty"`
	Token    string            `json:"token,omitempty"`
	Auth     map[string]string `json:"auth,omitempty"`
	Orgs     []Org             `json:"orgs,omitempty"`
}

// Config is the JSON configuration document.
type Config struct {
	DefaultServer string            `json:"default_server,omitempty"`
	Servers       map[string]Server `json:"servers"`
}

// Empty returns a config with no servers.
func Empty() *Config {
	return &Config{Servers: map[string]Server{}}
}

// DefaultPath is where a fresh config is written when none exists yet.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".git-lantern", "config.json"), nil
}

func searchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".git-lantern", "config.json"),
			filepath.Join(home, ".config", "git-lantern", "config.json"),
		)
	}
	return append(paths,
		"/etc/git-lantern/config.json",
		"/usr/local/etc/git-lantern/config.json",
	)
}

// ResolvePath returns the config file path the CLI should use. An explicit
// override wins. A path named by GIT_LANTERN_CONFIG must exist. Otherwise
// the first existing candidate path wins, and when none exists the default
// location is returned so a later save lands there.
func ResolvePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("config %s from $%s: %w", env, EnvConfigPath, err)
		}
		return env, nil
	}
	for _, p := range searchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return DefaultPath()
}

// Load reads the config document at path. A missing file yields an empty
// config rather than an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, err
	}
	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]Server{}
	}
	return cfg, nil
}

// ServerNames returns the configured server names in sorted order.
func (c *Config) ServerNames() []string {
	names := make([]string, 0, len(c.Servers))
	for name := range c.Servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectServer picks the entry to use, in order: the explicit name, the
// LANTERN_SERVER environment variable, the configured default_server, the
// sole configured entry, and finally an unconfigured GitHub server. An
// explicit name that is not configured is an error.
func (c *Config) SelectServer(name string) (Server, error) {
	pick := name
	if pick == "" {
		pick = os.Getenv(EnvServer)
	}
	if pick == "" {
		pick = c.DefaultServer
	}
	if pick == "" && len(c.Servers) == 1 {
		for only := range c.Servers {
			pick = only
		}
	}
	if pick == "" {
		return Server{Name: "github", Provider: "github"}, nil
	}
	srv, ok := c.Servers[pick]
	if !ok {
		known := strings.Join(c.ServerNames(), ", ")
		if known == "" {
			known = "none"
		}
		return Server{}, fmt.Errorf("unknown server %q (configured: %s)", pick, known)
	}
	srv.Name = pick
	if srv.Provider == "" {
		srv.Provider = InferProvider(pick)
	}
	return srv, nil
}

// InferProvider guesses the provider from a server name. Names containing
// "gitlab" or "bitbucket" map to those providers; everything else is github.
func InferProvider(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "gitlab"):
		return "gitlab"
	case strings.Contains(lower, "bitbucket"):
		return "bitbucket"
	default:
		return "github"
	}
}

var dotenvOnce sync.Once

// ResolveCredentials returns the user and token for the server, preferring
// explicit flag values, then <PROVIDER>_USER / <PROVIDER>_TOKEN environment
// variables, then the server entry itself. A .env file in the working
// directory is consulted once; real environment variables win over it.
func (s Server) ResolveCredentials(flagUser, flagToken string) (string, string) {
	dotenvOnce.Do(func() { _ = godotenv.Load() })
	prefix := envPrefix(s.Provider)
	user := flagUser
	if user == "" {
		user = os.Getenv(prefix + "_USER")
	}
	if user == "" {
		user = s.User
	}
	token := flagToken
	if token == "" {
		token = os.Getenv(prefix + "_TOKEN")
	}
	if token == "" {
		token = s.Token
	}
	return user, token
}

// AuthType returns the lowercased auth style from the server's auth settings.
// Empty means provider default (Bearer for Bitbucket).
func (s Server) AuthType() string {
	return strings.ToLower(s.Auth["type"])
}

func envPrefix(provider string) string {
	if provider == "" {
		provider = "github"
	}
	return strings.ToUpper(provider)
}

// Redacted returns a copy of the config with every token removed. The server
// and org structure is kept so an exported file still shows what exists.
func (c *Config) Redacted() *Config {
	out := &Config{
		DefaultServer: c.DefaultServer,
		Servers:       make(map[string]Server, len(c.Servers)),
	}
	for name, srv := range c.Servers {
		srv.Token = ""
		if len(srv.Orgs) > 0 {
			orgs := make([]Org, len(srv.Orgs))
			copy(orgs, srv.Orgs)
			for i := range orgs {
				orgs[i].Token = ""
			}
			srv.Orgs = orgs
		}
		if len(srv.Auth) > 0 {
			auth := make(map[string]string, len(srv.Auth))
			for k, v := range srv.Auth {
				auth[k] = v
			}
			srv.Auth = auth
		}
		out.Servers[name] = srv
	}
	return out
}

// Merge folds the servers from in into c, overwriting entries with the same
// name. With replace, the whole server set is taken from in. A non-empty
// incoming default_server wins either way.
func (c *Config) Merge(in *Config, replace bool) {
	if replace {
		c.Servers = map[string]Server{}
		c.DefaultServer = in.DefaultServer
	}
	if c.Servers == nil {
		c.Servers = map[string]Server{}
	}
	for name, srv := range in.Servers {
		c.Servers[name] = srv
	}
	if in.DefaultServer != "" {
		c.DefaultServer = in.DefaultServer
	}
}

// Save writes cfg to path as indented JSON with owner-only permissions.
func Save(cfg *Config, path string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return WriteSecure(path, append(data, '\n'))
}

// WriteSecure writes data to path with mode 0600 through a same-directory
// temp file and an atomic rename. A symlink at path is refused.
func WriteSecure(path string, data []byte) error {
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to write through symlink %s", path)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".lantern-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()
	if err := tmp.Chmod(0o600); err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
