/*
Package config reads model definition and store documents from YAML or JSON.

# Basic Usage

	cfg, err := config.FromFile("user.yaml")
	if err != nil {
	    return err
	}

	name := cfg.String("name", "")
	prefix := cfg.String("cid_prefix", "c")
	defaults := cfg.Map("defaults")
	attempts := cfg.Int("retry.max_attempts", 3)

# Paths

Keys containing dots descend into nested maps when no literal key of that
name exists. Section returns a nested map as its own Config.

# Defaults

Every typed accessor returns its default when the key is missing or the
value has the wrong type. Int accepts whole-number floats so JSON and YAML
documents behave the same. Duration accepts Go duration strings or a number
of milliseconds.

# Thread Safety

Config is safe for concurrent reads. It never modifies the map it wraps.
*/
package config
