package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/flowrt/internal/rterr"
	"github.com/ardnew/flowrt/message"
)

func payload(v int) *message.Message {
	return message.New(v, 8, message.Hooks{})
}

func TestFIFOBlocksWriterUntilReaderDrains(t *testing.T) {
	c := New("a-to-b", 1, FIFO)
	require.NoError(t, c.Write(context.Background(), payload(1)))

	done := make(chan error, 1)
	go func() {
		done <- c.Write(context.Background(), payload(2))
	}()

	select {
	case <-done:
		t.Fatal("write on full blocking FIFO returned before a read freed space")
	case <-time.After(20 * time.Millisecond):
	}

	m, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.Unpack())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked writer never woke after read freed space")
	}

	m, err = c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Unpack())
}

func TestFIFOReadBlocksUntilWriteOrEnd(t *testing.T) {
	c := New("a-to-b", 2, FIFO)

	result := make(chan struct {
		m   *message.Message
		err error
	}, 1)
	go func() {
		m, err := c.Read(context.Background())
		result <- struct {
			m   *message.Message
			err error
		}{m, err}
	}()

	select {
	case <-result:
		t.Fatal("read on empty blocking FIFO returned before a write or end")
	case <-time.After(20 * time.Millisecond):
	}

	require.NoError(t, c.Write(context.Background(), payload(7)))

	select {
	case r := <-result:
		require.NoError(t, r.err)
		assert.Equal(t, 7, r.m.Unpack())
	case <-time.After(time.Second):
		t.Fatal("blocked reader never woke after a write")
	}
}

func TestFIFOReadReturnsNoDataAfterSourceEnds(t *testing.T) {
	c := New("a-to-b", 2, FIFO)
	c.EndSource()
	_, err := c.Read(context.Background())
	assert.ErrorIs(t, err, rterr.ErrNoData)
}

func TestDFIFOOverwritesTailInsteadOfBlocking(t *testing.T) {
	c := New("a-to-b", 2, DFIFO)
	require.NoError(t, c.Write(context.Background(), payload(1)))
	require.NoError(t, c.Write(context.Background(), payload(2)))
	require.NoError(t, c.Write(context.Background(), payload(3)))

	assert.EqualValues(t, 1, c.Stats().Overwrite)

	m, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, m.Unpack())

	m, err = c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, m.Unpack())
}

func TestFIFODDuplicatesLastValueOnEmptyRead(t *testing.T) {
	c := New("a-to-b", 4, FIFOD)
	require.NoError(t, c.Write(context.Background(), payload(9)))

	m, err := c.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, m.Unpack())

	for i := 0; i < 3; i++ {
		m, err := c.Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 9, m.Unpack())
	}

	assert.EqualValues(t, 3, c.Stats().Copy)
}

func TestFIFODReadBeforeAnyWriteIsUninitialised(t *testing.T) {
	c := New("a-to-b", 4, FIFOD)
	_, err := c.Read(context.Background())
	assert.ErrorIs(t, err, rterr.ErrUninitialised)
}

func TestWriteAfterSinkEndReportsNoTarget(t *testing.T) {
	c := New("a-to-b", 1, FIFO)
	require.NoError(t, c.Write(context.Background(), payload(1)))
	c.EndSink()

	err := c.Write(context.Background(), payload(2))
	assert.ErrorIs(t, err, rterr.ErrNoTarget)
}

func TestBlockedWriterSeesNoSpaceWhenSinkEndsWhileWaiting(t *testing.T) {
	c := New("a-to-b", 1, FIFO)
	require.NoError(t, c.Write(context.Background(), payload(1)))

	done := make(chan error, 1)
	go func() {
		done <- c.Write(context.Background(), payload(2))
	}()

	time.Sleep(20 * time.Millisecond)
	c.EndSink()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, rterr.ErrNoSpace)
	case <-time.After(time.Second):
		t.Fatal("writer blocked on full FIFO never woke when sink ended")
	}
}

func TestDDReadNeverBlocksAndNeverDuplicates(t *testing.T) {
	c := New("firewall-in", 2, FIFO)

	m := c.DDRead()
	assert.Nil(t, m)

	require.NoError(t, c.Write(context.Background(), payload(5)))
	m = c.DDRead()
	require.NotNil(t, m)
	assert.Equal(t, 5, m.Unpack())

	m = c.DDRead()
	assert.Nil(t, m)
	assert.EqualValues(t, 0, c.Stats().Copy)
}

func TestCollectorWakesOnEitherOfTwoProducers(t *testing.T) {
	col := NewCollector(2)
	a := New("a-to-x", 2, FIFO)
	b := New("b-to-x", 2, FIFO)
	a.AttachCollector(col)
	b.AttachCollector(col)

	require.NoError(t, b.Write(context.Background(), payload(1)))

	snap, ended := col.Acquire()
	assert.False(t, ended)
	assert.Equal(t, 1, snap)
}

func TestCollectorEndsOnlyAfterAllProducersEnd(t *testing.T) {
	col := NewCollector(2)
	a := New("a-to-x", 2, FIFO)
	b := New("b-to-x", 2, FIFO)
	a.AttachCollector(col)
	b.AttachCollector(col)

	a.EndSource()
	_, state := col.Snapshot()
	assert.Equal(t, StatePending, state)

	b.EndSource()
	_, state = col.Snapshot()
	assert.Equal(t, StateEnd, state)
}

func TestGuardDiscardsWriteWithinMinimumInterArrivalTime(t *testing.T) {
	c := New("sensor-in", 4, FIFO)
	c.AttachGuard(NewGuard(time.Hour, false))

	require.NoError(t, c.Write(context.Background(), payload(1)))
	err := c.Write(context.Background(), payload(2))
	assert.ErrorIs(t, err, rterr.ErrGuardDiscarded)
	assert.Equal(t, 1, c.Stats().Count)
}

func TestRingNeverHoldsMoreThanLength(t *testing.T) {
	c := New("a-to-b", 3, DFIFO)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			_ = c.Write(context.Background(), payload(v))
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.LessOrEqual(t, stats.Count, stats.Length)
	assert.Equal(t, stats.Count, c.ring.reachable())
}
