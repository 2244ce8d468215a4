// Package buildinfo holds the release stamp of a memorywall binary. The
// release build overrides the variables below:
//
//	-ldflags "-X github.com/matzehuels/memorywall/pkg/buildinfo.Version=$TAG -X github.com/matzehuels/memorywall/pkg/buildinfo.Commit=$SHA"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template is the cobra version template for the root command.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (%s, built %s)\n", Version, short(Commit), Date)
}

// UserAgent identifies memorywall to the hosted backends it talks to.
func UserAgent() string {
	return "memorywall/" + Version
}

func short(sha string) string {
	if len(sha) > 12 {
		return sha[:12]
	}
	return sha
}
