package acoustic

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/dan-wells/FastPitch/internal/config"
)

// RuntimeInfo describes the ONNX Runtime shared library a run will load.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
}

var versionRe = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// DetectRuntime resolves the ONNX Runtime library path. The configured path
// wins, then the FASTPITCH_ORT_LIB and ORT_LIBRARY_PATH environment
// variables, then common system locations.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	path := firstNonEmpty(
		cfg.ORTLibraryPath,
		os.Getenv("FASTPITCH_ORT_LIB"),
		os.Getenv("ORT_LIBRARY_PATH"),
	)
	if path == "" {
		path = firstExisting(
			"/usr/lib/libonnxruntime.so",
			"/usr/local/lib/libonnxruntime.so",
			"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
		)
	}
	if path == "" {
		return RuntimeInfo{}, errors.New("unable to locate ONNX Runtime library; set runtime.ort_library_path or ORT_LIBRARY_PATH")
	}

	if _, err := os.Stat(path); err != nil {
		return RuntimeInfo{LibraryPath: path}, fmt.Errorf("onnx runtime library: %w", err)
	}

	version := libraryVersion(path)
	if version == "" {
		version = "unknown"
	}

	return RuntimeInfo{LibraryPath: path, Version: version}, nil
}

// libraryVersion pulls a release version out of library filenames such as
// libonnxruntime.so.1.17.0.
func libraryVersion(path string) string {
	if m := versionRe.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return m[1]
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
