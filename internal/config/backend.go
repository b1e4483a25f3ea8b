package config

// ConfigBackend abstracts where non-secret settings live. On macOS that is
// UserDefaults (via the `defaults` CLI); on Linux, where botina normally
// runs, it is a JSON file under $XDG_CONFIG_HOME/botina.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
