// Package config collects the server settings from, in increasing order of
// precedence: built-in defaults, a JSON or YAML config file, command-line
// flags and environment variables. A .env file, when present, provides
// environment variables that are not already set.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration written as "1.5s" in config files and flags.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error { return d.Set(string(b)) }

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the HTTP server's listening address (ip:port).
	Port string `json:"server_address" yaml:"server_address"`

	// GRPCPort is the gRPC listening port. Zero disables the gRPC server.
	GRPCPort int `json:"grpc_port" yaml:"grpc_port"`

	// FilePath is the directory of the file slot storage.
	FilePath string `json:"file_storage_path" yaml:"file_storage_path"`

	// DatabaseDSN selects SQL slot storage when set.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// DatabaseDriver is "pgx" or "sqlite".
	DatabaseDriver string `json:"database_driver" yaml:"database_driver"`

	EnablePprof bool `json:"enable_pprof" yaml:"enable_pprof"`
	EnableHTTPS bool `json:"enable_https" yaml:"enable_https"`

	// TLSHosts is the comma separated autocert host whitelist.
	TLSHosts string `json:"tls_hosts" yaml:"tls_hosts"`

	// TrustedSubnet in CIDR notation guards the stats endpoints.
	TrustedSubnet string `json:"trusted_subnet" yaml:"trusted_subnet"`

	// Config is the config file path. Never read from the file itself.
	Config string `json:"-" yaml:"-"`

	LogLevel  string `json:"log_level" yaml:"log_level"`
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`

	UploadLatency Duration `json:"upload_latency" yaml:"upload_latency"`
	ListLatency   Duration `json:"list_latency" yaml:"list_latency"`
	DeleteLatency Duration `json:"delete_latency" yaml:"delete_latency"`

	StorageQuota   int64 `json:"storage_quota" yaml:"storage_quota"`
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes"`

	UploadRPS   float64 `json:"upload_rps" yaml:"upload_rps"`
	UploadBurst int     `json:"upload_burst" yaml:"upload_burst"`
}

// Defaults returns the built-in settings.
func Defaults() Options {
	return Options{
		Port:           "localhost:8080",
		GRPCPort:       3200,
		DatabaseDriver: "pgx",
		LogLevel:       "info",
		UploadLatency:  Duration(1500 * time.Millisecond),
		ListLatency:    Duration(500 * time.Millisecond),
		DeleteLatency:  Duration(500 * time.Millisecond),
		StorageQuota:   5 << 20,
		MaxUploadBytes: 5 << 20,
		UploadRPS:      2,
		UploadBurst:    5,
	}
}

// TLSHostList splits TLSHosts.
func (o *Options) TLSHostList() []string {
	var hosts []string
	for _, h := range strings.Split(o.TLSHosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func bind(set *flag.FlagSet, o *Options) {
	set.StringVar(&o.Port, "a", o.Port, "run on ip:port server")
	set.IntVar(&o.GRPCPort, "g", o.GRPCPort, "gRPC port, 0 disables gRPC")
	set.StringVar(&o.FilePath, "f", o.FilePath, "path to storage directory")
	set.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "db address")
	set.StringVar(&o.DatabaseDriver, "db-driver", o.DatabaseDriver, "sql driver: pgx or sqlite")
	set.BoolVar(&o.EnablePprof, "p", o.EnablePprof, "enable pprof")
	set.BoolVar(&o.EnableHTTPS, "s", o.EnableHTTPS, "enable https")
	set.StringVar(&o.TLSHosts, "tls-hosts", o.TLSHosts, "comma separated autocert hosts")
	set.StringVar(&o.TrustedSubnet, "t", o.TrustedSubnet, "trusted subnet (CIDR)")
	set.StringVar(&o.Config, "c", o.Config, "config file (json or yaml)")
	set.StringVar(&o.Config, "config", o.Config, "config file (json or yaml)")
	set.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	set.StringVar(&o.JWTSecret, "jwt-secret", o.JWTSecret, "secret signing identity tokens")
	set.Var(&o.UploadLatency, "upload-latency", "simulated upload latency")
	set.Var(&o.ListLatency, "list-latency", "simulated list latency")
	set.Var(&o.DeleteLatency, "delete-latency", "simulated delete latency")
	set.Int64Var(&o.StorageQuota, "quota", o.StorageQuota, "max bytes per storage slot, 0 disables")
	set.Int64Var(&o.MaxUploadBytes, "max-upload", o.MaxUploadBytes, "max image size in bytes")
	set.Float64Var(&o.UploadRPS, "upload-rps", o.UploadRPS, "uploads per second per user, 0 disables")
	set.IntVar(&o.UploadBurst, "upload-burst", o.UploadBurst, "upload burst per user")
}

// ParseArgs builds Options from args (without the program name) and getenv.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	// first pass only finds the config file
	scratch := Defaults()
	pre := flag.NewFlagSet("config", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	bind(pre, &scratch)
	if err := pre.Parse(args); err != nil {
		return nil, err
	}

	cfgPath := scratch.Config
	if v := getenv("CONFIG"); v != "" {
		cfgPath = v
	}

	opts := Defaults()
	if cfgPath != "" {
		if err := loadFile(cfgPath, &opts); err != nil {
			return nil, err
		}
	}

	set := flag.NewFlagSet("dogify", flag.ContinueOnError)
	bind(set, &opts)
	if err := set.Parse(args); err != nil {
		return nil, err
	}
	opts.Config = cfgPath

	if err := applyEnv(&opts, getenv); err != nil {
		return nil, err
	}

	return &opts, nil
}

// Parse reads os.Args, the environment and ./.env.
func Parse() (*Options, error) {
	getenv, err := EnvWithDotenv(".env")
	if err != nil {
		return nil, err
	}
	return ParseArgs(os.Args[1:], getenv)
}

// EnvWithDotenv returns a getenv that falls back to the values in path.
// A missing file is not an error.
func EnvWithDotenv(path string) (func(string) string, error) {
	dotenv, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		dotenv = map[string]string{}
	}

	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}, nil
}

func loadFile(path string, o *Options) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, o)
	default:
		err = json.Unmarshal(content, o)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":    &o.Port,
		"FILE_STORAGE_PATH": &o.FilePath,
		"DATABASE_DSN":      &o.DatabaseDSN,
		"DATABASE_DRIVER":   &o.DatabaseDriver,
		"TLS_HOSTS":         &o.TLSHosts,
		"TRUSTED_SUBNET":    &o.TrustedSubnet,
		"LOG_LEVEL":         &o.LogLevel,
		"JWT_SECRET":        &o.JWTSecret,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"ENABLE_HTTPS": &o.EnableHTTPS,
		"ENABLE_PPROF": &o.EnablePprof,
	}
	for key, dst := range bools {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	durations := map[string]*Duration{
		"UPLOAD_LATENCY": &o.UploadLatency,
		"LIST_LATENCY":   &o.ListLatency,
		"DELETE_LATENCY": &o.DeleteLatency,
	}
	for key, dst := range durations {
		if v := getenv(key); v != "" {
			if err := dst.Set(v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}

	int64s := map[string]*int64{
		"STORAGE_QUOTA":    &o.StorageQuota,
		"MAX_UPLOAD_BYTES": &o.MaxUploadBytes,
	}
	for key, dst := range int64s {
		if v := getenv(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := getenv("GRPC_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRPC_PORT: %w", err)
		}
		o.GRPCPort = n
	}

	if v := getenv("UPLOAD_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("UPLOAD_RPS: %w", err)
		}
		o.UploadRPS = f
	}

	if v := getenv("UPLOAD_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("UPLOAD_BURST: %w", err)
		}
		o.UploadBurst = n
	}

	return nil
}
