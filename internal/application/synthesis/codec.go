// Package synthesis 提供合成编排：回退链、输出归一化、流式切片
package synthesis

import (
	"bytes"
	"encoding/binary"
)

// 输出容器探测用的魔数
var (
	riffMagic = []byte("RIFF")
	id3Magic  = []byte("ID3")
)

// isEncodedAudio 判断字节是否已是可识别的音频容器
// MP3 以 ID3 标签或帧同步字开头，WAV 以 RIFF 开头
func isEncodedAudio(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	if bytes.HasPrefix(data, riffMagic) || bytes.HasPrefix(data, id3Magic) {
		return true
	}
	// MPEG 帧同步：11 位全 1
	return data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// wrapWAV 将 PCM16 单声道采样包进 WAV 容器
func wrapWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Write(riffMagic)
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
