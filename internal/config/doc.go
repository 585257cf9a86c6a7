// Package config loads the trader's YAML configuration, expands ${VAR}
// references from the environment, applies defaults and validates the result.
package config
