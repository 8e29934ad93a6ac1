package meta

import (
	"github.com/zkwire/zkwire/pkg/dataconn"
)

const (
	// CLIAPIVersion tracks the JSON output of the command line tools
	CLIAPIVersion    = 1
	CLIAPIMinVersion = 1
)

// Following variables are filled in by the build
var (
	Version   string
	GitCommit string
	BuildDate string
)

type VersionOutput struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`

	CLIAPIVersion    int   `json:"cliAPIVersion"`
	CLIAPIMinVersion int   `json:"cliAPIMinVersion"`
	ProtocolVersion  int32 `json:"protocolVersion"`
}

func GetVersion() VersionOutput {
	return VersionOutput{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,

		CLIAPIVersion:    CLIAPIVersion,
		CLIAPIMinVersion: CLIAPIMinVersion,
		ProtocolVersion:  dataconn.ProtocolVersion,
	}
}
