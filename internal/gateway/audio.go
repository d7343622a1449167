package gateway

import (
	"context"
	"io"
	"sync"

	"github.com/readalong/readalong/internal/capture"
)

// defaultMicRate is assumed for inbound PCM when the client does not announce
// a sample rate in its hello event.
const defaultMicRate = 16000

// micSource adapts the connection's inbound binary frames (16-bit LE PCM) to
// a capture.Source. One stream is active at a time; frames arriving with no
// open stream are dropped.
type micSource struct {
	mu     sync.Mutex
	rate   int
	denied bool
	active *micStream
}

func newMicSource() *micSource {
	return &micSource{rate: defaultMicRate}
}

// setRate records the client's announced capture sample rate.
func (s *micSource) setRate(rate int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rate > 0 {
		s.rate = rate
	}
}

// setDenied marks the client's microphone as permanently refused.
func (s *micSource) setDenied() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied = true
}

// Open implements capture.Source.
func (s *micSource) Open(context.Context) (capture.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.denied {
		return nil, capture.ErrPermissionDenied
	}
	st := &micStream{
		rate:   s.rate,
		frames: make(chan []int16, 64),
		closed: make(chan struct{}),
	}
	s.active = st
	return st, nil
}

// push forwards one decoded PCM frame to the active stream, if any.
func (s *micSource) push(samples []int16) {
	s.mu.Lock()
	st := s.active
	s.mu.Unlock()
	if st == nil {
		return
	}
	st.push(samples)
}

// micStream buffers pushed frames for the recorder's read loop.
type micStream struct {
	rate   int
	frames chan []int16
	closed chan struct{}
	once   sync.Once

	pending []int16
}

func (s *micStream) SampleRate() int { return s.rate }

// Read implements capture.Stream. It hands out buffered samples first and
// blocks for the next frame otherwise.
func (s *micStream) Read(buf []int16) (int, error) {
	if len(s.pending) > 0 {
		n := copy(buf, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	select {
	case frame := <-s.frames:
		n := copy(buf, frame)
		s.pending = frame[n:]
		return n, nil
	case <-s.closed:
		// Drain anything pushed before close.
		select {
		case frame := <-s.frames:
			n := copy(buf, frame)
			s.pending = frame[n:]
			return n, nil
		default:
			return 0, io.EOF
		}
	}
}

func (s *micStream) push(samples []int16) {
	select {
	case s.frames <- samples:
	case <-s.closed:
	default:
		// Backpressure: drop the frame rather than stall the reader.
	}
}

func (s *micStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// decodePCM16 converts little-endian 16-bit PCM bytes into samples. A
// trailing odd byte is ignored.
func decodePCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return samples
}
