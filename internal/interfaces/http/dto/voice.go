package dto

import "time"

// VoiceResponse 单个音色
type VoiceResponse struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Builtin   bool      `json:"builtin"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// VoiceListResponse 音色列表
type VoiceListResponse struct {
	Voices []VoiceResponse `json:"voices"`
}

// CloneResponse 克隆结果
type CloneResponse struct {
	VoiceID string `json:"voice_id"`
	Label   string `json:"label"`
}
