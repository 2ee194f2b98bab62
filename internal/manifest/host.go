package manifest

import "runtime"

// DefaultTargets are built when a crate does not restrict its targets.
// It only contains tier one platforms, though not necessarily all of them.
var DefaultTargets = []string{
	"i686-pc-windows-msvc",
	"i686-unknown-linux-gnu",
	"x86_64-apple-darwin",
	"x86_64-pc-windows-msvc",
	"x86_64-unknown-linux-gnu",
}

// HostTarget is the target triple of the platform the orchestrator runs on.
// It is the default target for crates that do not name one.
var HostTarget = hostTriple(runtime.GOOS, runtime.GOARCH)

var archNames = map[string]string{
	"386":     "i686",
	"amd64":   "x86_64",
	"arm64":   "aarch64",
	"arm":     "armv7",
	"ppc64le": "powerpc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64gc",
}

func hostTriple(goos, goarch string) string {
	arch, ok := archNames[goarch]
	if !ok {
		arch = goarch
	}
	switch goos {
	case "linux":
		if goarch == "arm" {
			return arch + "-unknown-linux-gnueabihf"
		}
		return arch + "-unknown-linux-gnu"
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-msvc"
	default:
		return arch + "-unknown-" + goos
	}
}
