// Package runid builds the per-invocation names used to namespace benchmark
// results, transcripts and summaries across repeated runs.
package runid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout = "02_01_2006"
	timeLayout = "15_04_05"
)

// pathHostile lists the characters stripped from labels before they become
// part of a result directory name.
var pathHostile = strings.NewReplacer("/", "", "\\", "")

// Generator produces run identifiers from a clock and a process id. The zero
// value uses the local wall clock and the current process id.
type Generator struct {
	Now func() time.Time
	PID func() int
}

// Stamp returns "{date}_{time}_{pid}_{label}" in local time with second
// resolution. The label is kept as-is apart from path cleaning, so a label
// like "pts/nginx" leaves a "/" in the stamp. Use ResultName when the
// identifier must be a single file or directory name.
func (g Generator) Stamp(label string) string {
	now := g.now()
	s := now.Format(dateLayout) + "_" + now.Format(timeLayout) + "_" + strconv.Itoa(g.pid()) + "_" + label
	return filepath.Clean(s)
}

// ResultName strips path-hostile characters from label, stamps it and
// normalizes every separator to a dash. The result is safe as a single
// file or directory name.
func (g Generator) ResultName(label string) string {
	return strings.ReplaceAll(g.Stamp(pathHostile.Replace(label)), "_", "-")
}

func (g Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g Generator) pid() int {
	if g.PID != nil {
		return g.PID()
	}
	return os.Getpid()
}

// Stamp is Generator{}.Stamp.
func Stamp(label string) string {
	return Generator{}.Stamp(label)
}

// ResultName is Generator{}.ResultName.
func ResultName(label string) string {
	return Generator{}.ResultName(label)
}
