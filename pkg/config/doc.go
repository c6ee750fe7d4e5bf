// Package config loads the YAML configuration shared by the portal CLI and
// server. Values missing from the file keep the Default ones and unknown keys
// are rejected.
package config
