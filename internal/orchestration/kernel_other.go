//go:build !unix

package orchestration

import "runtime"

func kernelRelease() string {
	return runtime.GOOS
}
