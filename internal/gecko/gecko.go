// Package gecko controls the in-app Gecko profiler: arming it through a
// pushed GeckoView environment config plus the persistent debug-app flag,
// and collecting its capture through the stop-and-upload content provider.
package gecko

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mozperf/androprof/internal/adb"
)

// RemoteConfigDir is where the GeckoView config file lives on the device.
const RemoteConfigDir = "/data/local/tmp"

// configTemplate is the GeckoView environment config enabling startup
// profiling. PACKAGE_NAME is substituted with the target package.
const configTemplate = `env:
  PERF_SPEW_DIR: /storage/emulated/0/Android/data/PACKAGE_NAME/files
  IONPERF: func
  JIT_OPTION_emitInterpreterEntryTrampoline: true
  JIT_OPTION_enableICFramePointers: true
  JIT_OPTION_onlyInlineSelfHosted: true

#   MOZ_LOG: "ScriptPreloader:5,IndexedDB:5,mozStorage:5"

  MOZ_PROFILER_STARTUP: 1
  MOZ_PROFILER_STARTUP_NO_BASE: 1 # bug 1955125
  MOZ_PROFILER_STARTUP_INTERVAL: 500
  MOZ_PROFILER_STARTUP_FEATURES: nostacksampling,nomarkerstacks,screenshots,ipcmessages,java,cpu,markersallthreads,flows,fileio
  MOZ_PROFILER_STARTUP_FILTERS: GeckoMain,Compositor,Renderer,IPDL Background,*
`

// ConfigYAML renders the GeckoView startup-profiling config for pkg.
func ConfigYAML(pkg string) string {
	return strings.ReplaceAll(configTemplate, "PACKAGE_NAME", pkg)
}

// StopUploadURI returns the content-provider URI that stops the in-app
// profiler and streams back its buffer.
func StopUploadURI(pkg string) string {
	return fmt.Sprintf("content://%s.profiler/stop-and-upload", pkg)
}

// SpewDir returns the on-device directory where the app writes auxiliary
// profiling artifacts (JIT logs, marker logs).
func SpewDir(pkg string) string {
	return fmt.Sprintf("/storage/emulated/0/Android/data/%s/files", pkg)
}

// PushConfig writes the GeckoView config for pkg into scratchDir and pushes
// it to the device. It returns the remote config path so the caller can
// record the mutation for cleanup.
func PushConfig(ctx context.Context, client *adb.Client, pkg, scratchDir string) (string, error) {
	name := fmt.Sprintf("%s-geckoview-config.yaml", pkg)
	localPath := filepath.Join(scratchDir, name)
	if err := os.WriteFile(localPath, []byte(ConfigYAML(pkg)), 0o644); err != nil {
		return "", fmt.Errorf("failed to write geckoview config: %w", err)
	}

	if err := client.Push(ctx, localPath, RemoteConfigDir+"/"); err != nil {
		return "", fmt.Errorf("failed to push geckoview config: %w", err)
	}
	return RemoteConfigDir + "/" + name, nil
}

// SetDebugApp sets the persistent debug-app flag for pkg so the app picks
// the pushed config up on next launch. The caller records the mutation so
// cleanup can clear the flag again.
func SetDebugApp(ctx context.Context, client *adb.Client, pkg string) error {
	if _, err := client.Shell(ctx, "am", "set-debug-app", "--persistent", pkg); err != nil {
		return fmt.Errorf("failed to set debug app: %w", err)
	}
	return nil
}

// Capture stops the in-app profiler via the content provider and writes the
// returned capture verbatim to outPath.
func Capture(ctx context.Context, client *adb.Client, pkg, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outPath, err)
	}
	defer f.Close()

	if err := client.ReadContent(ctx, StopUploadURI(pkg), f); err != nil {
		return fmt.Errorf("failed to stop and collect gecko profile: %w", err)
	}
	return nil
}
