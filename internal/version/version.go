package version

import "fmt"

// Заполняются через -ldflags "-X github.com/vladislavdragonenkov/helpdesk/internal/version.version=…".
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// Fields возвращает сведения о сборке в виде полей для structured-логов.
func Fields() map[string]any {
	return map[string]any{"version": version, "commit": commit}
}

func String() string {
	return fmt.Sprintf("helpdesk version=%s commit=%s date=%s", version, commit, date)
}
