// Package version exposes build information injected at link time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag, set with -ldflags.
	GitRelease = "dev"
	// GitCommit is the commit hash, set with -ldflags.
	GitCommit = "unknown"
	// GitCommitDate is the commit date, set with -ldflags.
	GitCommitDate = "unknown"
	// GoInfo describes the toolchain and platform the binary was built with.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)
