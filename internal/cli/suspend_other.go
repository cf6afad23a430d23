//go:build !unix

package cli

import "context"

// watchSuspend is a no-op where job-control signals do not exist.
func watchSuspend(ctx context.Context, v visibility) {}
