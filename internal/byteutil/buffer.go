package byteutil

import (
	"bytes"
	"sync"
)

// buffers larger than this are left to the garbage collector
const maxPooledCap = 64 * 1024

var bytesBuffer = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

// GetBytesBuf returns an empty buffer from the pool.
func GetBytesBuf() *bytes.Buffer {
	buf := bytesBuffer.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func PutBytesBuf(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledCap {
		return
	}
	bytesBuffer.Put(buf)
}

// CopyBytes returns a copy of the buffer content that outlives the buffer.
func CopyBytes(buf *bytes.Buffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out
}
