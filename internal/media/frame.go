// Package media defines the video frame type that flows out of the decoder
// and the buffer pool that backs it, so steady-state playback allocates no
// per-frame memory.
package media

// Frame is one decoded picture in planar YUV 4:2:0. The planes are views
// into a pool-owned buffer: a Frame is valid until the next Acquire on the
// pool that produced it.
type Frame struct {
	Width  int
	Height int

	Y []byte
	U []byte
	V []byte

	YStride  int
	UVStride int
}

// PlaneSizes returns the Y and chroma plane byte sizes for a 4:2:0 picture
// of the given dimensions. Odd dimensions round the chroma planes up.
func PlaneSizes(width, height int) (ySize, uvSize int) {
	ySize = width * height
	uvSize = ((width + 1) / 2) * ((height + 1) / 2)
	return ySize, uvSize
}

// FramePool hands out Frames carved from a single reusable backing buffer.
// The buffer only ever grows: a resolution change to a larger picture
// reallocates once, smaller pictures reuse the existing capacity. The pool
// is not safe for concurrent use; the pipeline owns exactly one.
type FramePool struct {
	buf []byte
}

// NewFramePool creates an empty pool. The backing buffer is allocated on
// first Acquire.
func NewFramePool() *FramePool {
	return &FramePool{}
}

// Acquire returns a Frame of the given dimensions backed by the pool's
// buffer. The previous Frame handed out by this pool is invalidated. Plane
// contents are whatever the buffer last held; callers overwrite every pixel.
func (p *FramePool) Acquire(width, height int) *Frame {
	ySize, uvSize := PlaneSizes(width, height)
	total := ySize + 2*uvSize
	if cap(p.buf) < total {
		p.buf = make([]byte, total)
	}
	p.buf = p.buf[:cap(p.buf)]

	return &Frame{
		Width:    width,
		Height:   height,
		Y:        p.buf[:ySize],
		U:        p.buf[ySize : ySize+uvSize],
		V:        p.buf[ySize+uvSize : total],
		YStride:  width,
		UVStride: (width + 1) / 2,
	}
}

// Capacity reports the current backing buffer size in bytes.
func (p *FramePool) Capacity() int {
	return cap(p.buf)
}
