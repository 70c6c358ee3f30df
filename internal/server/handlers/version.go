package handlers

import (
	"net/http"
	"runtime"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/brandlens/brandlens/internal/core/matcher"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

var (
	buildMu sync.RWMutex
	build   = BuildInfo{Name: "brandlens", Version: "dev", Commit: "unknown", BuildDate: "unknown"}
)

// SetVersionInfo records the ldflags-stamped build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	buildMu.Lock()
	defer buildMu.Unlock()
	build.Version, build.Commit, build.BuildDate = version, commit, buildDate
}

// SetAppIdentity takes the binary name from identity.
func SetAppIdentity(identity *appidentity.Identity) {
	if identity == nil || identity.BinaryName == "" {
		return
	}
	buildMu.Lock()
	defer buildMu.Unlock()
	build.Name = identity.BinaryName
}

// CurrentBuild returns the metadata set by SetVersionInfo and SetAppIdentity.
func CurrentBuild() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}

// VersionResponse is the body of GET /version.
type VersionResponse struct {
	BuildInfo
	GoVersion string   `json:"go_version"`
	Platform  string   `json:"platform"`
	Gofulmen  string   `json:"gofulmen"`
	Crucible  string   `json:"crucible"`
	Engines   []string `json:"matcher_engines"`
}

func VersionHandler(w http.ResponseWriter, r *http.Request) {
	deps := crucible.GetVersion()
	writeJSON(w, http.StatusOK, VersionResponse{
		BuildInfo: CurrentBuild(),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Gofulmen:  deps.Gofulmen,
		Crucible:  deps.Crucible,
		Engines:   matcher.DefaultRegistry.Available(),
	})
}
