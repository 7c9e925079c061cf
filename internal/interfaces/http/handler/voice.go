// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"tts-gateway/internal/application/admission"
	"tts-gateway/internal/config"
	"tts-gateway/internal/domain/entity"
	"tts-gateway/internal/domain/repository"
	"tts-gateway/internal/interfaces/http/dto"
	"tts-gateway/internal/interfaces/http/middleware"
	apperrors "tts-gateway/pkg/errors"
	"tts-gateway/pkg/logger"
)

// VoiceHandler 音色管理处理器
type VoiceHandler struct {
	pipeline *admission.Pipeline
	voices   repository.VoiceProfileStore
	upload   *config.UploadConfig
}

// NewVoiceHandler 创建音色处理器
func NewVoiceHandler(pipeline *admission.Pipeline, voices repository.VoiceProfileStore, upload *config.UploadConfig) *VoiceHandler {
	return &VoiceHandler{
		pipeline: pipeline,
		voices:   voices,
		upload:   upload,
	}
}

// ListVoices 列出可用音色：内置基础音色加租户自有克隆档案
func (h *VoiceHandler) ListVoices(c *gin.Context) {
	tenant := middleware.Tenant(c)

	resp := dto.VoiceListResponse{
		Voices: []dto.VoiceResponse{
			{ID: entity.BaseVoiceID, Label: "Base voice", Builtin: true},
		},
	}

	profiles, err := h.voices.List(c.Request.Context(), tenant)
	if err != nil {
		logger.Error(c.Request.Context(), "list voice profiles failed", err)
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeLedgerError, "voice profile backend unavailable"))
		return
	}
	for _, p := range profiles {
		resp.Voices = append(resp.Voices, dto.VoiceResponse{
			ID:        p.ID,
			Label:     p.Label,
			CreatedAt: p.CreatedAt,
		})
	}

	dto.Success(c, resp)
}

// CloneVoice 从上传样本创建克隆音色
// multipart 字段：audio_file 为音频样本，label 为档案名，consent 为授权确认
func (h *VoiceHandler) CloneVoice(c *gin.Context) {
	tenant := middleware.Tenant(c)

	fileHeader, err := c.FormFile("audio_file")
	if err != nil {
		dto.AppError(c, apperrors.New(apperrors.CodeInvalidParam, "audio sample file is required"))
		return
	}

	if fileHeader.Size > h.upload.MaxBytes {
		dto.AppError(c, apperrors.New(apperrors.CodeUploadTooLarge, "audio sample exceeds size limit"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if !h.allowedType(contentType) {
		dto.AppError(c, apperrors.New(apperrors.CodeUploadTypeInvalid, "unsupported audio sample type"))
		return
	}

	consent := c.PostForm("consent")
	decision := h.pipeline.Evaluate(admission.Request{
		Tenant:       tenant,
		Class:        entity.ClassClone,
		ConsentGiven: consent == "true" || consent == "1",
	})
	if !decision.Allowed {
		dto.AppError(c, decision.Reject)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "cannot read audio sample"))
		return
	}
	defer file.Close()

	// 双重保险：按声明大小限流后仍限制实际读取量
	sample, err := io.ReadAll(io.LimitReader(file, h.upload.MaxBytes+1))
	if err != nil {
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeInvalidParam, "cannot read audio sample"))
		return
	}
	if int64(len(sample)) > h.upload.MaxBytes {
		dto.AppError(c, apperrors.New(apperrors.CodeUploadTooLarge, "audio sample exceeds size limit"))
		return
	}

	label := strings.TrimSpace(c.PostForm("label"))
	if label == "" {
		label = "Custom Voice"
	}

	profile, err := h.voices.Create(c.Request.Context(), tenant, label, sample, contentType)
	if err != nil {
		logger.Error(c.Request.Context(), "create voice profile failed", err)
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeLedgerError, "voice profile backend unavailable"))
		return
	}

	dto.Created(c, dto.CloneResponse{
		VoiceID: profile.ID,
		Label:   profile.Label,
	})
}

// DeleteVoice 删除租户的克隆音色档案
func (h *VoiceHandler) DeleteVoice(c *gin.Context) {
	tenant := middleware.Tenant(c)
	voiceID := c.Param("voice_id")

	if voiceID == entity.BaseVoiceID {
		dto.AppError(c, apperrors.New(apperrors.CodeInvalidParam, "builtin voice cannot be deleted"))
		return
	}

	if err := h.voices.Delete(c.Request.Context(), tenant, voiceID); err != nil {
		logger.Error(c.Request.Context(), "delete voice profile failed", err)
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeLedgerError, "voice profile backend unavailable"))
		return
	}

	dto.NoContent(c)
}

// allowedType 检查上传类型是否在白名单
func (h *VoiceHandler) allowedType(contentType string) bool {
	for _, t := range h.upload.AllowedTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}
