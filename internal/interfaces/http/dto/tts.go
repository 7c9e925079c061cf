package dto

// TTSRequest 合成请求体
// 文本边界由准入管线校验，这里不做 binding 约束以保证错误格式统一
type TTSRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
}
