// Package audioproc provides the PCM plumbing shared by playback and capture:
// WAV encoding and decoding, linear resampling, time-stretching for slowed
// read-along playback, and small signal helpers.
//
// All functions operate on 16-bit little-endian mono PCM, the format every
// speech backend in the project speaks natively.
package audioproc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrShortWAV indicates data too small to hold a RIFF/WAVE header.
	ErrShortWAV = errors.New("audioproc: data too short for WAV header")
	// ErrUnsupportedWAV indicates a WAV file that is not 16-bit PCM.
	ErrUnsupportedWAV = errors.New("audioproc: only 16-bit PCM WAV supported")
)

const wavHeaderSize = 44

// EncodeWAV wraps 16-bit mono PCM samples in a canonical 44-byte RIFF/WAVE
// header at the given sample rate.
func EncodeWAV(samples []int16, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	dataSize := len(samples) * 2
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, wavHeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[wavHeaderSize+i*2:], uint16(s))
	}
	return buf
}

// DecodeWAV parses a 16-bit PCM WAV file and returns its samples and sample
// rate. Multi-channel input is mixed down to mono by averaging.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < wavHeaderSize {
		return nil, 0, ErrShortWAV
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("audioproc: not a RIFF/WAVE file")
	}

	// Walk chunks; fmt and data are not guaranteed to sit at fixed offsets.
	var (
		channels      int
		bitsPerSample int
		pcm           []byte
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, ErrShortWAV
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, ErrUnsupportedWAV
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}
		// Chunks are word-aligned.
		pos = body + size + size%2
	}

	if sampleRate == 0 || pcm == nil {
		return nil, 0, ErrShortWAV
	}
	if bitsPerSample != 16 || channels < 1 {
		return nil, 0, ErrUnsupportedWAV
	}

	frames := len(pcm) / (2 * channels)
	samples = make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			off := (i*channels + c) * 2
			sum += int(int16(binary.LittleEndian.Uint16(pcm[off:])))
		}
		samples[i] = int16(sum / channels)
	}
	return samples, sampleRate, nil
}

// Duration returns the play time of a sample buffer at the given rate.
func Duration(samples []int16, sampleRate int) time.Duration {
	if sampleRate <= 0 || len(samples) == 0 {
		return 0
	}
	return time.Duration(float64(len(samples)) / float64(sampleRate) * float64(time.Second))
}

// RMS returns the root-mean-square level of the samples, normalised to
// [0, 1]. Useful as a cheap silence detector on captured audio.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
