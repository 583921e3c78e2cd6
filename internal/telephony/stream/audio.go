package stream

import (
	"bytes"
	"encoding/binary"
)

// Twilio media streams carry 8kHz mono mu-law audio.
const sampleRate = 8000

// framesPerSecond is Twilio's media frame cadence (20ms frames).
const framesPerSecond = 50

// decodeMuLawSample expands one G.711 mu-law byte to a 16-bit PCM sample.
func decodeMuLawSample(b byte) int16 {
	b = ^b
	sign := b & 0x80
	exponent := (b >> 4) & 0x07
	mantissa := b & 0x0F
	sample := (int16(mantissa)<<3 + 0x84) << exponent
	sample -= 0x84
	if sign != 0 {
		return -sample
	}
	return sample
}

func decodeMuLaw(data []byte) []int16 {
	samples := make([]int16, len(data))
	for i, b := range data {
		samples[i] = decodeMuLawSample(b)
	}
	return samples
}

// pcmToWAV wraps 16-bit PCM samples in a RIFF/WAVE header so the
// transcription API can identify the format.
func pcmToWAV(samples []int16) []byte {
	dataLen := len(samples) * 2
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	for _, sample := range samples {
		binary.Write(&buf, binary.LittleEndian, uint16(sample))
	}
	return buf.Bytes()
}

// segmenter splits the inbound audio stream into utterances by watching
// for a run of quiet frames after speech.
type segmenter struct {
	voiced       []byte
	quietFrames  int
	speechFrames int

	// silenceThreshold is the mean absolute PCM amplitude below which a
	// frame counts as quiet.
	silenceThreshold int
	// hangoverFrames is how many consecutive quiet frames end an utterance.
	hangoverFrames int
	// minSpeechFrames filters out coughs and line noise.
	minSpeechFrames int
}

func newSegmenter() *segmenter {
	return &segmenter{
		silenceThreshold: 250,
		hangoverFrames:   frames(700),
		minSpeechFrames:  frames(300),
	}
}

// frames converts a duration in milliseconds to a frame count.
func frames(ms int) int {
	return ms * framesPerSecond / 1000
}

// Push adds one media frame. It returns a complete utterance's worth of
// mu-law audio when the caller has finished speaking, otherwise nil.
func (s *segmenter) Push(frame []byte) []byte {
	if s.isQuiet(frame) {
		if s.speechFrames == 0 {
			// Leading silence is dropped entirely.
			return nil
		}
		s.quietFrames++
		s.voiced = append(s.voiced, frame...)
		if s.quietFrames >= s.hangoverFrames {
			return s.flush()
		}
		return nil
	}

	s.quietFrames = 0
	s.speechFrames++
	s.voiced = append(s.voiced, frame...)
	return nil
}

// Flush returns any buffered speech, used when the stream stops mid-utterance.
func (s *segmenter) Flush() []byte {
	return s.flush()
}

func (s *segmenter) flush() []byte {
	voiced, speechFrames := s.voiced, s.speechFrames
	s.voiced, s.quietFrames, s.speechFrames = nil, 0, 0
	if speechFrames < s.minSpeechFrames {
		return nil
	}
	return voiced
}

func (s *segmenter) isQuiet(frame []byte) bool {
	if len(frame) == 0 {
		return true
	}
	var total int64
	for _, b := range frame {
		sample := int64(decodeMuLawSample(b))
		if sample < 0 {
			sample = -sample
		}
		total += sample
	}
	return int(total/int64(len(frame))) < s.silenceThreshold
}
