// Package config loads the handler's three configuration options via
// viper, in the manner of weed/util/config.go's LoadConfiguration: defaults
// are set first, then an optional config file is merged over them. The
// handler itself only ever sees the resulting Config value; it never
// touches viper directly.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	KeyContainerSizeBytes        = "container.size"
	KeyReplicationPush           = "replication.push"
	KeyMinHealthyForMaintenance  = "minHealthyForMaintenance"

	// DefaultContainerSizeBytes is 5 GiB, the nominal container size
	// passed to the placement policy absent an explicit override.
	DefaultContainerSizeBytes int64 = 5 * 1024 * 1024 * 1024
)

// Config holds the reconciliation handler's external configuration
// surface: the container size assumed for placement, whether replication
// commands push or pull, and how many healthy replicas maintenance mode
// requires before it releases a node.
type Config struct {
	ContainerSizeBytes       int64
	ReplicationPush          bool
	MinHealthyForMaintenance int
}

// Load reads configuration from a file named name with any extension
// viper supports, such as name.yaml or name.toml (searched the way
// weed/util/config.go searches: working directory first, then the
// supplied extra search paths), falling back to defaults for anything the
// file omits. A missing file is not an error; Load simply returns the
// defaults.
func Load(name string, searchPaths ...string) (Config, error) {
	v := viper.New()
	v.SetDefault(KeyContainerSizeBytes, DefaultContainerSizeBytes)
	v.SetDefault(KeyReplicationPush, false)
	v.SetDefault(KeyMinHealthyForMaintenance, 1)

	v.SetConfigName(name)
	v.AddConfigPath(".")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !strings.Contains(err.Error(), "Not Found") {
			return Config{}, err
		}
	}

	return Config{
		ContainerSizeBytes:       v.GetInt64(KeyContainerSizeBytes),
		ReplicationPush:          v.GetBool(KeyReplicationPush),
		MinHealthyForMaintenance: v.GetInt(KeyMinHealthyForMaintenance),
	}, nil
}

// Default returns the zero-config defaults, for callers (and tests) that
// don't need a config file.
func Default() Config {
	return Config{
		ContainerSizeBytes:       DefaultContainerSizeBytes,
		ReplicationPush:          false,
		MinHealthyForMaintenance: 1,
	}
}
