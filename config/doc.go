// Package config loads service configuration with viper.
//
// Values come from cmd/<service>/config.yml, then environment variables
// (including a .env file loaded with godotenv), then command-line flags
// that were set explicitly. Each package owns its Config struct with
// ApplyDefaults and Validate; the application struct embeds
// ServiceConfig and composes the rest.
package config
