// Package config loads runtime configuration for the ContentIQ CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional .env file, read with godotenv without touching the process
//     environment.
//  3. Environment variables: CIQ_* plus GEMINI_API_KEY, GOOGLE_CLIENT_ID and
//     GOOGLE_CLIENT_SECRET. These win over the .env file.
//  4. Optional JSON file selected via -c or -config.
//  5. Command-line flags (see parseFlags).
//
// The result is checked with go-playground/validator.
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "90s" or integer
// nanoseconds:
//
//	{
//	  "data_dir": "/var/lib/contentiq",
//	  "store_backend": "badger",
//	  "archive_backend": "s3",
//	  "s3_bucket": "ciq-archive",
//	  "request_timeout": "90s"
//	}
//
// Secrets (API key, OAuth client secret, S3 keys) are only read from the
// environment.
package config
