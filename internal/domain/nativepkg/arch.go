package nativepkg

// Host instruction-set names as reported by uname -m on the supported platforms.
const (
	ArchX86_64  = "x86_64"
	ArchI386    = "i386"
	ArchI686    = "i686"
	ArchAArch64 = "aarch64"
	ArchARMHF   = "armhf"
	ArchARMv7L  = "armv7l"
	ArchPPC64LE = "ppc64le"
	ArchS390X   = "s390x"
	ArchRISCV64 = "riscv64"
)

//nolint:gochecknoglobals // Fixed lookup tables.
var (
	debianArchitectures = map[string]string{
		ArchX86_64:  "amd64",
		ArchI386:    "i386",
		ArchI686:    "i386",
		ArchAArch64: "arm64",
		ArchARMHF:   "armhf",
		ArchARMv7L:  "armhf",
		ArchPPC64LE: "ppc64el",
		ArchS390X:   "s390x",
		ArchRISCV64: "riscv64",
	}

	rpmArchitectures = map[string]string{
		ArchX86_64:  "x86_64",
		ArchI386:    "i686",
		ArchI686:    "i686",
		ArchAArch64: "aarch64",
		ArchARMHF:   "armv7hl",
		ArchARMv7L:  "armv7hl",
		ArchPPC64LE: "ppc64le",
		ArchS390X:   "s390x",
		ArchRISCV64: "riscv64",
	}
)

// HostArch converts a Go architecture name (runtime.GOARCH) into the host
// instruction-set name. Unknown names are returned unchanged so the resolver
// can report them.
func HostArch(goarch string) string {
	switch goarch {
	case "amd64":
		return ArchX86_64
	case "386":
		return ArchI686
	case "arm64":
		return ArchAArch64
	case "arm":
		return ArchARMHF
	case "ppc64le":
		return ArchPPC64LE
	case "s390x":
		return ArchS390X
	case "riscv64":
		return ArchRISCV64
	default:
		return goarch
	}
}
