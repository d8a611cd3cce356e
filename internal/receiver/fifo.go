package receiver

import "os"

// openFifoSink opens path for writing (os.OpenFile with O_WRONLY). The
// target is a named pipe, mkfifo'd out of band by the operator or launch
// tooling; the channel worker doesn't create the node, it just opens the
// write end.
//
// Opening a FIFO for writing blocks until a reader opens the read end.
// BuildFromConfig always opens the sink by path; BuildOptions has no field
// for passing in a pre-opened file.
func openFifoSink(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY, 0)
}
