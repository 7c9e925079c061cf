// Package entity 定义领域实体
package entity

import "strings"

// LimitClass 限流类别
type LimitClass string

const (
	// ClassSynthesis 合成类请求，滚动 60 秒窗口限流
	ClassSynthesis LimitClass = "synthesis"
	// ClassClone 克隆类请求，按 UTC 自然日限流
	ClassClone LimitClass = "clone"
)

// SynthesisRequest 一次合成请求
type SynthesisRequest struct {
	Text    string
	VoiceID string
	// Embedding 可选的说话人声纹，克隆音色时由音色库解析得到
	Embedding SpeakerEmbedding
}

// NormalizedText 返回去除首尾空白后的文本
func (r *SynthesisRequest) NormalizedText() string {
	return strings.TrimSpace(r.Text)
}

// Voice 返回音色标识，未指定时回落到内置基础音色
func (r *SynthesisRequest) Voice() string {
	if strings.TrimSpace(r.VoiceID) == "" {
		return BaseVoiceID
	}
	return r.VoiceID
}
