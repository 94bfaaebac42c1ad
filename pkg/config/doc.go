// Package config loads configuration structs from environment variables.
//
// It wraps `github.com/caarlos0/env/v11` for struct-tag parsing and
// `github.com/joho/godotenv` for optional .env files. Unlike an application,
// a client library must not mutate the host process environment or keep
// global state, so every call to Load is independent:
//
//   - .env files are read into a map (godotenv.Read) and merged under the
//     process environment rather than exported with os.Setenv.
//   - WithEnvironment substitutes an explicit map for the process environment.
//   - WithPrefix namespaces every variable.
//
// # Usage
//
//	var cfg flagsmith.Config
//	err := config.Load(&cfg,
//		config.WithDotEnv(".env"),
//	)
//
// # Error Handling
//
// Failures wrap one of the sentinel errors, compare with errors.Is:
//
//   - ErrParsingConfig     – env vars could not be parsed into the struct.
//   - ErrInvalidConfigType – target is not a struct.
//   - ErrNilPointer        – nil pointer passed to Load.
//   - ErrDotEnv            – a .env file is missing or malformed.
package config
