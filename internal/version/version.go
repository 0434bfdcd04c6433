// Package version reports build metadata set through ldflags, falling back
// to the binary's embedded build info.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
)

var (
	Version    = "dev"
	Commit     = "none"
	CommitDate string
	BuildDate  string
	BuildId    string
	GoVersion  string
	VCSDirty   *bool
)

type Info struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	CommitDate string `json:"commit_date"`
	BuildDate  string `json:"build_date"`
	BuildId    string `json:"build_id"`
	GoVersion  string `json:"go_version"`
	VCSDirty   *bool  `json:"vcs_dirty,omitempty"`
}

// Get merges the ldflags values with the embedded build info. ldflags win
// for commit and build date; the toolchain always reports the Go version.
func Get() Info {
	out := Info{
		Version:    Version,
		Commit:     Commit,
		CommitDate: CommitDate,
		BuildDate:  BuildDate,
		BuildId:    BuildId,
		GoVersion:  GoVersion,
		VCSDirty:   VCSDirty,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		out.GoVersion = bi.GoVersion
		out.applySettings(bi.Settings)
	}
	return out
}

func (i *Info) applySettings(settings []debug.BuildSetting) {
	for _, s := range settings {
		if s.Value == "" {
			continue
		}
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "none" {
				i.Commit = s.Value
			}
		case "vcs.time":
			i.CommitDate = s.Value
			if i.BuildDate == "" {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			if b, err := strconv.ParseBool(s.Value); err == nil {
				i.VCSDirty = &b
			}
		}
	}
}

// String is the one-line form printed by -V.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	fmt.Fprintf(&b, " commit=%s", i.Commit)
	if i.CommitDate != "" {
		fmt.Fprintf(&b, " commit_date=%s", i.CommitDate)
	}
	if i.BuildDate != "" {
		fmt.Fprintf(&b, " build_date=%s", i.BuildDate)
	}
	if i.BuildId != "" {
		fmt.Fprintf(&b, " build_id=%s", i.BuildId)
	}
	if i.VCSDirty != nil {
		fmt.Fprintf(&b, " dirty=%t", *i.VCSDirty)
	}
	fmt.Fprintf(&b, " go=%s", i.GoVersion)
	return b.String()
}
