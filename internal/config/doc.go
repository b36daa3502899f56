// Package config loads flowgate configuration from a YAML file and
// environment variables, with environment taking precedence over defaults.
package config
