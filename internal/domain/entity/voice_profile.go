// Package entity 定义领域实体
package entity

import "time"

// BaseVoiceID 内置基础音色标识
const BaseVoiceID = "base"

// VoiceProfile 克隆音色档案
// 生命周期由外部音色库负责，网关只读写引用
type VoiceProfile struct {
	ID        string    `json:"id"`
	Tenant    string    `json:"tenant"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// SpeakerEmbedding 说话人声纹向量，网关视为不透明字节
type SpeakerEmbedding []byte
