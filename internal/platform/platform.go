package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// OS is a host operating system identifier, using GOOS spelling.
type OS string

// Arch is a host CPU architecture identifier, using GOARCH spelling.
type Arch string

// Operating systems the target table knows about.
const (
	Linux   OS = "linux"
	Windows OS = "windows"
	Darwin  OS = "darwin"
)

// Architectures the target table knows about.
const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
)

// ID is the coarse platform family used for reporting.
type ID int

const (
	IDOther ID = iota
	IDLinux
	IDWindows
)

func (id ID) String() string {
	switch id {
	case IDLinux:
		return "Linux"
	case IDWindows:
		return "Windows"
	default:
		return "Other"
	}
}

// Platform is an (OS, architecture) pair.
type Platform struct {
	OS   OS
	Arch Arch
}

func (p Platform) String() string {
	return string(p.OS) + "/" + string(p.Arch)
}

// ID returns the platform family.
func (p Platform) ID() ID {
	switch p.OS {
	case Linux:
		return IDLinux
	case Windows:
		return IDWindows
	default:
		return IDOther
	}
}

// DisplayName returns the OS name the way uname-style tools print it
// (e.g., "Linux", "Windows", "Darwin").
func (p Platform) DisplayName() string {
	s := string(p.OS)
	if s == "" {
		return "unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Detect returns the platform of the running process.
func Detect() Platform {
	return Platform{OS: OS(runtime.GOOS), Arch: Arch(runtime.GOARCH)}
}

// Parse parses an "os/arch" string such as "linux/amd64". Values are not
// checked against the target table; that is the resolver's job.
func Parse(s string) (Platform, error) {
	osPart, archPart, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || osPart == "" || archPart == "" {
		return Platform{}, fmt.Errorf("invalid platform %q: expected os/arch", s)
	}
	return Platform{
		OS:   OS(strings.ToLower(osPart)),
		Arch: Arch(strings.ToLower(archPart)),
	}, nil
}

// IsWindowsFamily reports whether executables on os need an .exe suffix.
func IsWindowsFamily(os OS) bool {
	return os == Windows
}
