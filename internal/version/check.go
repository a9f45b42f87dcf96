package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	goversion "github.com/hashicorp/go-version"
	"go.uber.org/zap"
)

// AppVersion is stamped at build time via -ldflags.
var AppVersion = "v0.0.0"

const releaseURL = "https://api.github.com/repos/modelrelay/relay-api/releases/latest"

type githubRelease struct {
	TagName string `json:"tag_name"`
}

// CheckForUpdates compares the running version against the latest published
// release and logs a warning when it is behind. Failures are silent; this is
// advisory only.
func CheckForUpdates(logger *zap.Logger) {
	client := http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(releaseURL)
	if err != nil {
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return
	}

	current, err := goversion.NewVersion(AppVersion)
	if err != nil {
		return
	}
	latest, err := goversion.NewVersion(release.TagName)
	if err != nil {
		return
	}

	if current.LessThan(latest) {
		logger.Warn(fmt.Sprintf("running outdated version %s; latest is %s", AppVersion, release.TagName))
	}
}
