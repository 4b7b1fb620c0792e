package buildinfo

import "github.com/prometheus/common/version"

const Graffiti = "           _           _           \n ___ _ __ (_)_ __   __| | _____  __\n/ __| '_ \\| | '_ \\ / _` |/ _ \\ \\/ /\n\\__ \\ |_) | | | | | (_| |  __/>  < \n|___/ .__/|_|_| |_|\\__,_|\\___/_/\\_\\\n    |_|                            \n\n"

// Set with -ldflags at build time.
var (
	BuildTag string = "v0.0.0"
	Name     string = "spindex"
	Time     string = ""
	Revision string = ""
)

func init() {
	version.Version = BuildTag
	version.Revision = Revision
	version.BuildDate = Time
}

type buildinfo struct{}

func (buildinfo) Tag() string {
	return BuildTag
}

func (buildinfo) Name() string {
	return Name
}

func (buildinfo) Time() string {
	return Time
}

// Print returns the multi-line version report of the binary.
func (buildinfo) Print() string {
	return version.Print(Name)
}

var Info buildinfo
