// Package audiocache 提供内容寻址的音频缓存
package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// keyPrefix 缓存键前缀
const keyPrefix = "tts:"

// FingerprintInput 指纹元组
// 任何会改变合成字节的参数都必须进入元组，否则配置变更后会命中陈旧音频
type FingerprintInput struct {
	Text          string
	VoiceID       string
	ModelRevision string
	Quality       string
	Sampler       string
}

// Fingerprint 计算确定性指纹，256 位摘要保证跨输入碰撞不可行
func Fingerprint(in FingerprintInput) string {
	voice := in.VoiceID
	if voice == "" {
		voice = "base"
	}
	revision := in.ModelRevision
	if revision == "" {
		revision = "main"
	}

	h := sha256.New()
	h.Write([]byte(strings.Join([]string{
		strings.TrimSpace(in.Text),
		voice,
		revision,
		in.Quality,
		in.Sampler,
	}, "|")))

	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
