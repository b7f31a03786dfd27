package audio

import (
	"encoding/binary"
	"testing"
)

func TestRenderToneLength(t *testing.T) {
	buf := RenderTone(440, 0.5, 0.25, 1)
	want := (SampleRate/4 + SampleRate/2) * BytesPerFrame
	if len(buf) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(buf))
	}
}

func TestRenderToneLeadingSilence(t *testing.T) {
	buf := RenderTone(440, 0.1, 0.1, 1)
	lead := SampleRate / 10 * BytesPerFrame
	for i := 0; i < lead; i++ {
		if buf[i] != 0 {
			t.Fatalf("expected silence before offset, byte %d = %d", i, buf[i])
		}
	}
	nonZero := false
	for i := lead; i < len(buf); i += 2 {
		if int16(binary.LittleEndian.Uint16(buf[i:])) != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatalf("expected tone after offset")
	}
}

func TestRenderToneChannelsMatch(t *testing.T) {
	buf := RenderTone(330, 0.05, 0, 0.5)
	for i := 0; i+3 < len(buf); i += BytesPerFrame {
		if buf[i] != buf[i+2] || buf[i+1] != buf[i+3] {
			t.Fatalf("left and right differ at frame %d", i/BytesPerFrame)
		}
	}
}

func TestSilentIsUnavailable(t *testing.T) {
	var e Emitter = Silent{}
	if e.Available() {
		t.Fatalf("silent emitter must report unavailable")
	}
	e.PlayPitch(440, 1, 0)
}

func TestClampVolume(t *testing.T) {
	if ClampVolume(-1) != 0 || ClampVolume(2) != 1 || ClampVolume(0.3) != 0.3 {
		t.Fatalf("unexpected clamp results")
	}
}
