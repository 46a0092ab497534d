package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parityfleet/paritynode/core/protocol"
)

func reqs(n int) []protocol.BlockRequest {
	out := make([]protocol.BlockRequest, n)
	for i := range out {
		out[i] = protocol.BlockRequest{StartIndex: int32(i * 10), Length: 10}
	}
	return out
}

func TestDrainAllWorkersSucceed(t *testing.T) {
	q := New(reqs(4), 2)

	drain := func() {
		for {
			_, ok := q.Take()
			if !ok {
				break
			}
		}
		q.MarkWorkerDone()
	}

	go drain()
	go drain()

	q.Await()
	assert.True(t, q.IsComplete())
}

func TestRequeueOnWorkerFailureKeepsQueueAlive(t *testing.T) {
	q := New(reqs(2), 2)

	r1, ok := q.Take()
	require.True(t, ok)

	// worker 1 loses its peer mid-flight
	q.Requeue(r1)
	q.MarkWorkerDone()

	// worker 2 drains everything, including the requeued request
	count := 0
	for {
		_, ok := q.Take()
		if !ok {
			break
		}
		count++
	}
	q.MarkWorkerDone()

	q.Await()
	assert.True(t, q.IsComplete())
	assert.Equal(t, 2, count)
}

func TestAllWorkersDieWithPendingWorkIsIncomplete(t *testing.T) {
	q := New(reqs(3), 2)

	r, ok := q.Take()
	require.True(t, ok)
	q.Requeue(r)
	q.MarkWorkerDone()
	q.MarkWorkerDone()

	q.Await()
	assert.False(t, q.IsComplete())
}
