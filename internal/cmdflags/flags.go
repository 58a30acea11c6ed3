package cmdflags

import (
	"time"

	"github.com/andrebq/lostminer/auth"
	"github.com/andrebq/lostminer/store"
	"github.com/urfave/cli/v2"
)

const (
	envPrefix = "LOSTMINER_"
)

func env(name string) []string {
	return []string{envPrefix + name}
}

func DataDir(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "data"
	}
	return &cli.StringFlag{
		Name:        "db",
		Usage:       "Directory where the database is kept",
		EnvVars:     env("DB"),
		Value:       *out,
		Destination: out,
	}
}

func ContentModel(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = string(store.CompositeUnique)
	}
	return &cli.StringFlag{
		Name:        "content-model",
		Usage:       "Uniqueness rules for contents: composite (name+version unique, contents removed with their author) or independent (name and version unique, authors with contents cannot be removed)",
		EnvVars:     env("CONTENT_MODEL"),
		Value:       *out,
		Destination: out,
	}
}

func SecretEnvVar(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = auth.SecretEnvVar
	}
	return &cli.StringFlag{
		Name:        "secret-envvar-name",
		Usage:       "Name of the environment variable that holds the token signing secret. The secret itself should not be passed as an argument",
		Value:       *out,
		Destination: out,
	}
}

func LogLevel(out *string) cli.Flag {
	if len(*out) == 0 {
		*out = "info"
	}
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "Minimum level of the log messages (debug, info, warn, error)",
		EnvVars:     env("LOG_LEVEL"),
		Value:       *out,
		Destination: out,
	}
}

func LogPretty(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "log-pretty",
		Usage:       "Write human friendly logs instead of JSON lines",
		EnvVars:     env("LOG_PRETTY"),
		Value:       *out,
		Destination: out,
	}
}

func Duration(name, envName, usage string, out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        name,
		Usage:       usage,
		EnvVars:     env(envName),
		Value:       *out,
		Destination: out,
	}
}

func String(name, envName, usage string, out *string) cli.Flag {
	f := &cli.StringFlag{
		Name:        name,
		Usage:       usage,
		Value:       *out,
		Destination: out,
	}
	if envName != "" {
		f.EnvVars = env(envName)
	}
	return f
}
