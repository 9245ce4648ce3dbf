package command

import (
	"sync"

	"github.com/smallnest/ringbuffer"
)

// tail keeps the last size bytes written to it.
type tail struct {
	mu   sync.Mutex
	rb   *ringbuffer.RingBuffer
	size int
}

func newTail(size int) *tail {
	return &tail{rb: ringbuffer.New(size), size: size}
}

func (t *tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if len(p) > t.size {
		p = p[len(p)-t.size:]
	}

	if free := t.rb.Free(); free < len(p) {
		drop := make([]byte, len(p)-free)
		_, _ = t.rb.Read(drop)
	}

	_, _ = t.rb.Write(p)

	return n, nil
}

func (t *tail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return string(t.rb.Bytes())
}
