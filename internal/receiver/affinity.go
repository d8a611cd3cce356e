package receiver

import (
	"runtime"

	"golang.org/x/sys/unix"

	"github.com/kf7qqd/waveband/internal/logx"
)

// pinCurrentThread locks the calling goroutine to its current OS thread
// and, if cpu >= 0, restricts that thread to a single CPU core via
// sched_setaffinity, giving each demod channel a dedicated worker thread
// so a busy channel can't be descheduled by an unrelated goroutine sharing
// the same OS thread.
//
// A negative cpu value skips the affinity call; an error from
// SchedSetaffinity is logged (when log is non-nil) and otherwise ignored —
// affinity is an optimization, not a correctness requirement.
func pinCurrentThread(cpu int, label string, log *logx.Logger) {
	runtime.LockOSThread()
	if cpu < 0 {
		return
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil && log != nil {
		log.Warn("AFFINITY", "channel %s: failed to pin to CPU %d: %v", label, cpu, err)
	}
}
