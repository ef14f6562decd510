// Package pool provides zero-allocation buffer management using sync.Pool.
package pool

import (
	"sync"

	"github.com/pippi2802/hlem-framework/internal/model"
)

// DefaultBufferSize is the default size for byte buffers.
const DefaultBufferSize = 64 * 1024 // 64KB

// ByteBuffer wraps a byte slice for pooled reuse.
type ByteBuffer struct {
	Data []byte
}

// Reset clears the buffer for reuse.
func (b *ByteBuffer) Reset() {
	b.Data = b.Data[:0]
}

// Write appends data to the buffer.
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.Data = append(b.Data, p...)
	return len(p), nil
}

// Len returns the current length of data in the buffer.
func (b *ByteBuffer) Len() int {
	return len(b.Data)
}

// Bytes returns the underlying byte slice.
func (b *ByteBuffer) Bytes() []byte {
	return b.Data
}

// BufferPool manages reusable byte buffers.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a new buffer pool with the specified buffer size.
func NewBufferPool(bufferSize int) *BufferPool {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	bp := &BufferPool{size: bufferSize}
	bp.pool.New = func() any {
		return &ByteBuffer{
			Data: make([]byte, 0, bufferSize),
		}
	}
	return bp
}

// Get retrieves a buffer from the pool.
func (p *BufferPool) Get() *ByteBuffer {
	return p.pool.Get().(*ByteBuffer)
}

// Put returns a buffer to the pool.
func (p *BufferPool) Put(buf *ByteBuffer) {
	buf.Reset()
	p.pool.Put(buf)
}

// EventPool manages reusable Event structs.
type EventPool struct {
	pool sync.Pool
}

// NewEventPool creates a new event pool.
func NewEventPool() *EventPool {
	ep := &EventPool{}
	ep.pool.New = func() any {
		return &model.Event{
			CaseID:     make([]byte, 0, 64),
			Activity:   make([]byte, 0, 128),
			Resource:   make([]byte, 0, 64),
			Lifecycle:  make([]byte, 0, 16),
			Attributes: make([]model.Attribute, 0, 8),
		}
	}
	return ep
}

// Get retrieves an event from the pool.
func (p *EventPool) Get() *model.Event {
	return p.pool.Get().(*model.Event)
}

// Put returns an event to the pool.
func (p *EventPool) Put(e *model.Event) {
	e.Reset()
	p.pool.Put(e)
}
