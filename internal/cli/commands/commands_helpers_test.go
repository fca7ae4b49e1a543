package commands

import (
	"path/filepath"
	"runtime"
	"testing"

	"StudyVault/internal/config"
)

// withTempConfig переопределяет пользовательские каталоги на время теста,
// чтобы токен создавался в temp. Возвращает конфиг с TokenFile внутри temp.
func withTempConfig(t *testing.T, serverURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Setenv("APPDATA", dir)
	} else {
		t.Setenv("XDG_CONFIG_HOME", dir)
	}
	return &config.Config{ServerURL: serverURL, TokenFile: filepath.Join(dir, "StudyVault", "auth_token")}
}
