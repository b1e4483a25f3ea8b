//go:build darwin

package config

import "os/exec"

// keychainExec reads one secret from the macOS keychain. The non-darwin
// variant reads a secrets file instead; both return the raw secret bytes.
func keychainExec(service, account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
}
