package opengl

import (
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

type VertexArray struct {
	id uint32
}

func NewVertexArray() *VertexArray {
	va := &VertexArray{}
	gl.GenVertexArrays(1, &va.id)
	return va
}

func (va *VertexArray) Bind()   { gl.BindVertexArray(va.id) }
func (va *VertexArray) Unbind() { gl.BindVertexArray(0) }

func (va *VertexArray) Delete() {
	gl.DeleteVertexArrays(1, &va.id)
}

// Buffer is a GL buffer object with static contents.
type Buffer struct {
	id     uint32
	target uint32
	size   int
}

// NewBuffer creates a buffer bound to target and fills it with size bytes
// from data.
func NewBuffer(target uint32, size int, data unsafe.Pointer) *Buffer {
	b := &Buffer{target: target, size: size}
	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(target, b.id)
	gl.BufferData(target, size, data, gl.STATIC_DRAW)
	return b
}

func (b *Buffer) Bind()     { gl.BindBuffer(b.target, b.id) }
func (b *Buffer) Size() int { return b.size }

func (b *Buffer) Delete() {
	gl.DeleteBuffers(1, &b.id)
}
