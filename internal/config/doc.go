// Package config provides YAML configuration loading and validation for the
// speech-to-text service. Files are applied over built-in defaults and every
// section is validated before use.
package config
