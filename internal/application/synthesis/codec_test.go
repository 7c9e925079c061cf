package synthesis

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEncodedAudio(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"wav header", []byte("RIFFxxxxWAVE"), true},
		{"id3 tag", []byte("ID3\x04\x00\x00"), true},
		{"mpeg frame sync", []byte{0xFF, 0xFB, 0x90, 0x00}, true},
		{"raw pcm", []byte{0x00, 0x01, 0x02, 0x03}, false},
		{"too short", []byte{0xFF}, false},
		{"empty", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isEncodedAudio(tc.data))
		})
	}
}

func TestWrapWAVHeader(t *testing.T) {
	pcm := make([]byte, 320)
	out := wrapWAV(pcm, 16000)

	require.Equal(t, 44+len(pcm), len(out))
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, "data", string(out[36:40]))

	assert.EqualValues(t, 16000, binary.LittleEndian.Uint32(out[24:28]))
	assert.EqualValues(t, len(pcm), binary.LittleEndian.Uint32(out[40:44]))
}

func TestPlaceholderOutput(t *testing.T) {
	engine := NewPlaceholderEngine(16000)

	audio, err := engine.Synthesize(context.Background(), "anything", nil)
	require.NoError(t, err)

	// 1 秒 16kHz PCM16 单声道加 44 字节头
	assert.Equal(t, 44+16000*2, len(audio))
	assert.True(t, isEncodedAudio(audio))

	// 确定性：相同输入相同字节
	again, _ := engine.Synthesize(context.Background(), "anything", nil)
	assert.Equal(t, audio, again)
}
