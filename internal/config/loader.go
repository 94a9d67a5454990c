package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix is the prefix for configuration environment variables.
const envPrefix = "GRIDPLAN_"

// sections are the nested config groups reachable via environment variables,
// e.g. GRIDPLAN_DATABASE_HOST -> database.host.
var sections = []string{"server", "database", "solver", "assist"}

var configFileUsed string

// findConfigFile returns the config file to use.
// Priority: explicit path > gridplan.yaml > gridplan.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"gridplan.yaml", "gridplan.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from defaults, an optional YAML file, environment
// variables, and CLI flags, in increasing priority.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"server.host":              DefaultHost,
		"server.port":              DefaultPort,
		"server.watch":             false,
		"database.driver":          DefaultDriver,
		"database.path":            DefaultDBPath,
		"database.port":            5432,
		"database.ssl_mode":        "disable",
		"database.connect_timeout": "30s",
		"solver.budget":            DefaultSolveBudget.String(),
		"seeds_dir":                DefaultSeedsDir,
		"verbose":                  false,
		"output":                   DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables
	// GRIDPLAN_SERVER_PORT -> server.port, GRIDPLAN_SEEDS_DIR -> seeds_dir
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return flagKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Secrets may be given as ${VAR} references in the config file.
	cfg.Database.Password = expandEnvVars(cfg.Database.Password)
	cfg.Database.User = expandEnvVars(cfg.Database.User)
	cfg.Database.Host = expandEnvVars(cfg.Database.Host)
	cfg.Assist.APIKey = expandEnvVars(cfg.Assist.APIKey)
	cfg.Server.SessionSecret = expandEnvVars(cfg.Server.SessionSecret)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path of the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// envTransform maps GRIDPLAN_ environment variables to config keys. Variables
// named after a known section become nested keys; everything else stays a
// flat top-level key.
func envTransform(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	for _, section := range sections {
		if strings.HasPrefix(key, section+"_") {
			return section + "." + strings.TrimPrefix(key, section+"_")
		}
	}
	return key
}

// flagKey maps CLI flag names to config keys. Flags use kebab-case and a few
// shorthands that do not match the config layout one to one.
func flagKey(name string) string {
	switch name {
	case "host":
		return "server.host"
	case "port":
		return "server.port"
	case "watch":
		return "server.watch"
	case "budget":
		return "solver.budget"
	}
	return strings.ReplaceAll(name, "-", "_")
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} references with environment variable values,
// leaving unknown references untouched.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}
