package auth

import (
	"fmt"
	"os"
)

const (
	SecretEnvVar = "LOSTMINER_SECRET"

	minSecretSize = 16
)

// SecretFromEnv reads the token signing secret from varname and removes it
// from the environment, so child processes never see it.
func SecretFromEnv(varname string, getfn func(string) string, setfn func(string, string) error) ([]byte, error) {
	if getfn == nil {
		getfn = os.Getenv
	}
	if setfn == nil {
		setfn = os.Setenv
	}
	val := getfn(varname)
	setfn(varname, "")
	if len(val) < minSecretSize {
		return nil, fmt.Errorf("auth: secret from %v too short got %v expecting at least %v bytes", varname, len(val), minSecretSize)
	}
	return []byte(val), nil
}
