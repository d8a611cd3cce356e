package receiver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kf7qqd/waveband/internal/sbuf"
)

func Test_Receiver_RequestShutdownPropagatesToWorkers(t *testing.T) {
	w := NewChannelWorker(ChannelWorkerConfig{
		Label: "0",
		Queue: sbuf.NewSPSCQueue(4),
	})
	r := NewReceiver(ReceiverConfig{
		Allocator: sbuf.NewAllocator(1, 16),
		Format:    sbuf.CS16,
		Workers:   []*ChannelWorker{w},
	})

	r.RequestShutdown()
	assert.Equal(t, StateShutdownRequested, r.State())
	assert.Equal(t, StateShutdownRequested, w.State())
	assert.Equal(t, StateShutdownRequested, r.pump.State())
}
