// Package config builds the service configuration from flags, POSTS_*
// environment variables and an optional YAML file.
//
// Precedence, lowest first: built-in defaults, environment, YAML file,
// explicitly set flags.
package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/SergeyParamoshkin/posts/internal/storage"
)

const ServiceName = "posts"

type Config struct {
	Routes     bool   `yaml:"routes"`
	Addr       string `yaml:"addr"`
	DiagAddr   string `yaml:"diag_addr"`
	Store      string `yaml:"store"`
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisAddr  string `yaml:"redis_addr"`
	StoreKey   string `yaml:"store_key"`
	JWTSecret  string `yaml:"jwt_secret"`
	// TokenFor prints a bearer token for this user id and exits.
	TokenFor int64 `yaml:"-"`
}

func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Kind:       c.Store,
		DataDir:    c.DataDir,
		SQLitePath: c.SQLitePath,
		RedisAddr:  c.RedisAddr,
	}
}

// flagError is a failure the flag set has already reported together with
// the usage text.
type flagError struct{ error }

// Load is Parse for main packages. Errors go to stderr; ok is false when
// the program should exit.
func Load(args []string, stderr io.Writer) (c Config, ok bool) {
	c, err := parse(args, stderr)
	if err == nil {
		return c, true
	}

	if _, printed := err.(flagError); !printed {
		fmt.Fprintln(stderr, ServiceName+":", err)
	}

	return Config{}, false
}

// Parse reads args (without the program name).
func Parse(args []string) (Config, error) {
	c, err := parse(args, os.Stderr)
	if fe, ok := err.(flagError); ok {
		return Config{}, fe.error
	}

	return c, err
}

func parse(args []string, output io.Writer) (Config, error) {
	fs := flag.NewFlagSet(ServiceName, flag.ContinueOnError)
	fs.SetOutput(output)

	var c Config
	var file string

	fs.StringVar(&file, "config", getEnv("POSTS_CONFIG", ""), "YAML config file")
	fs.BoolVar(&c.Routes, "routes", getEnvBool("POSTS_ROUTES", false), "Generate router documentation")
	fs.StringVar(&c.Addr, "addr", getEnv("POSTS_ADDR", ":3333"), "application address")
	fs.StringVar(&c.DiagAddr, "diag_addr", getEnv("POSTS_DIAG_ADDR", ":9999"), "diag address")
	fs.StringVar(&c.Store, "store", getEnv("POSTS_STORE", storage.KindFile), "store backend: memory, file, sqlite or redis")
	fs.StringVar(&c.DataDir, "data_dir", getEnv("POSTS_DATA_DIR", "data"), "directory of the file store")
	fs.StringVar(&c.SQLitePath, "sqlite_path", getEnv("POSTS_SQLITE_PATH", "posts.db"), "database file of the sqlite store")
	fs.StringVar(&c.RedisAddr, "redis_addr", getEnv("POSTS_REDIS_ADDR", "localhost:6379"), "address of the redis store")
	fs.StringVar(&c.StoreKey, "store_key", getEnv("POSTS_STORE_KEY", storage.DefaultKey), "key holding the post collection")
	fs.StringVar(&c.JWTSecret, "jwt_secret", getEnv("POSTS_JWT_SECRET", "replace-this-with-a-strong-secret"), "HS256 secret for bearer tokens")
	fs.Int64Var(&c.TokenFor, "token", 0, "print a bearer token for this user id and exit")

	if err := fs.Parse(args); err != nil {
		return Config{}, flagError{err}
	}

	if file == "" {
		return c, nil
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	fromFile := c
	if err := loadFile(file, &fromFile); err != nil {
		return Config{}, err
	}

	// explicit flags beat the file
	fs.VisitAll(func(f *flag.Flag) {
		if !set[f.Name] {
			return
		}
		switch f.Name {
		case "routes":
			fromFile.Routes = c.Routes
		case "addr":
			fromFile.Addr = c.Addr
		case "diag_addr":
			fromFile.DiagAddr = c.DiagAddr
		case "store":
			fromFile.Store = c.Store
		case "data_dir":
			fromFile.DataDir = c.DataDir
		case "sqlite_path":
			fromFile.SQLitePath = c.SQLitePath
		case "redis_addr":
			fromFile.RedisAddr = c.RedisAddr
		case "store_key":
			fromFile.StoreKey = c.StoreKey
		case "jwt_secret":
			fromFile.JWTSecret = c.JWTSecret
		}
	})

	return fromFile, nil
}

func loadFile(path string, c *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}

	return nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}

	return v
}
