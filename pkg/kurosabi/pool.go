package kurosabi

import (
	"bufio"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the size used for pooled bufio.Reader/Writer
// instances backing each connection.
const DefaultBufferSize = 4096

// PoolStrategy selects how pooled Request/response/bufio objects are
// distributed across goroutines.
type PoolStrategy int

const (
	// PoolStrategyStandard uses a single sync.Pool per object kind.
	// Fastest for typical request/response-sized hold times.
	PoolStrategyStandard PoolStrategy = iota
	// PoolStrategyPerCPU shards each pool across GOMAXPROCS sync.Pools
	// to cut lock/contention under sustained high concurrency.
	PoolStrategyPerCPU
)

var poolStrategy atomic.Int32

// SetPoolStrategy sets the pooling strategy process-wide. Call before
// serving traffic for consistent behavior.
func SetPoolStrategy(s PoolStrategy) { poolStrategy.Store(int32(s)) }

func currentStrategy() PoolStrategy { return PoolStrategy(poolStrategy.Load()) }

type perCPUPool[T any] struct {
	pools      []*sync.Pool
	numCPU     int
	roundRobin atomic.Uint64
	newFunc    func() T
}

func newPerCPUPool[T any](newFunc func() T) *perCPUPool[T] {
	numCPU := runtime.GOMAXPROCS(0)
	if numCPU < 1 {
		numCPU = 1
	}
	pools := make([]*sync.Pool, numCPU)
	for i := range pools {
		pools[i] = &sync.Pool{New: func() interface{} { return newFunc() }}
	}
	return &perCPUPool[T]{pools: pools, numCPU: numCPU, newFunc: newFunc}
}

func (p *perCPUPool[T]) get() T {
	idx := p.roundRobin.Add(1) % uint64(p.numCPU)
	if obj := p.pools[idx].Get(); obj != nil {
		return obj.(T)
	}
	return p.newFunc()
}

func (p *perCPUPool[T]) put(obj T) {
	idx := p.roundRobin.Load() % uint64(p.numCPU)
	p.pools[idx].Put(obj)
}

func (p *perCPUPool[T]) warmup(countPerCPU int) {
	for _, pool := range p.pools {
		objs := make([]T, countPerCPU)
		for i := range objs {
			objs[i] = p.newFunc()
		}
		for i := range objs {
			pool.Put(objs[i])
		}
	}
}

var (
	requestPoolStd = sync.Pool{New: func() interface{} { return &Request{} }}

	bufioReaderPoolStd = sync.Pool{New: func() interface{} {
		return bufio.NewReaderSize(nil, DefaultBufferSize)
	}}
	bufioWriterPoolStd = sync.Pool{New: func() interface{} {
		return bufio.NewWriterSize(nil, DefaultBufferSize)
	}}

	requestPoolPerCPU     = newPerCPUPool(func() *Request { return &Request{} })
	bufioReaderPoolPerCPU = newPerCPUPool(func() *bufio.Reader {
		return bufio.NewReaderSize(nil, DefaultBufferSize)
	})
	bufioWriterPoolPerCPU = newPerCPUPool(func() *bufio.Writer {
		return bufio.NewWriterSize(nil, DefaultBufferSize)
	})
)

// acquireRequest returns a pooled, empty *Request wrapping r, ready
// for ParseRequestLine.
func acquireRequest(r *bufio.Reader) *Request {
	var req *Request
	if currentStrategy() == PoolStrategyPerCPU {
		req = requestPoolPerCPU.get()
	} else {
		req = requestPoolStd.Get().(*Request)
	}
	if req.buf == nil {
		req.buf = NewByteBuffer(requestBufferInitCap)
	}
	if req.hdrs == nil {
		req.hdrs = NewHeaderList()
	}
	req.resetForReuse(r)
	return req
}

// releaseRequest returns req to the pool. req must not be used again.
func releaseRequest(req *Request) {
	if req == nil {
		return
	}
	req.r = nil
	if currentStrategy() == PoolStrategyPerCPU {
		requestPoolPerCPU.put(req)
	} else {
		requestPoolStd.Put(req)
	}
}

// acquireBufioReader returns a pooled *bufio.Reader wrapping r.
func acquireBufioReader(r io.Reader) *bufio.Reader {
	var br *bufio.Reader
	if currentStrategy() == PoolStrategyPerCPU {
		br = bufioReaderPoolPerCPU.get()
	} else {
		br = bufioReaderPoolStd.Get().(*bufio.Reader)
	}
	br.Reset(r)
	return br
}

// releaseBufioReader returns br to the pool after clearing its
// underlying reader.
func releaseBufioReader(br *bufio.Reader) {
	if br == nil {
		return
	}
	br.Reset(nil)
	if currentStrategy() == PoolStrategyPerCPU {
		bufioReaderPoolPerCPU.put(br)
	} else {
		bufioReaderPoolStd.Put(br)
	}
}

// acquireBufioWriter returns a pooled *bufio.Writer wrapping w.
func acquireBufioWriter(w io.Writer) *bufio.Writer {
	var bw *bufio.Writer
	if currentStrategy() == PoolStrategyPerCPU {
		bw = bufioWriterPoolPerCPU.get()
	} else {
		bw = bufioWriterPoolStd.Get().(*bufio.Writer)
	}
	bw.Reset(w)
	return bw
}

// releaseBufioWriter flushes, clears, and returns bw to the pool.
func releaseBufioWriter(bw *bufio.Writer) {
	if bw == nil {
		return
	}
	bw.Flush()
	bw.Reset(nil)
	if currentStrategy() == PoolStrategyPerCPU {
		bufioWriterPoolPerCPU.put(bw)
	} else {
		bufioWriterPoolStd.Put(bw)
	}
}

// WarmupPools pre-allocates count objects (or count-per-CPU under
// PoolStrategyPerCPU) in every pool, to absorb the allocation cost of
// the first wave of connections instead of paying it during traffic.
func WarmupPools(count int) {
	if currentStrategy() == PoolStrategyPerCPU {
		requestPoolPerCPU.warmup(count)
		bufioReaderPoolPerCPU.warmup(count)
		bufioWriterPoolPerCPU.warmup(count)
		return
	}
	for i := 0; i < count; i++ {
		releaseRequest(acquireRequest(nil))
		releaseBufioReader(acquireBufioReader(nil))
		releaseBufioWriter(acquireBufioWriter(nil))
	}
}
