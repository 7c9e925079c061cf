package audiocache

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	in := FingerprintInput{
		Text:          "Welcome",
		VoiceID:       "base",
		ModelRevision: "main",
		Quality:       "standard",
		Sampler:       "default",
	}

	assert.Equal(t, Fingerprint(in), Fingerprint(in))
	assert.True(t, strings.HasPrefix(Fingerprint(in), "tts:"))
}

func TestFingerprintDefaults(t *testing.T) {
	// 空音色与空修订等价于显式默认值
	implicit := Fingerprint(FingerprintInput{Text: "Welcome"})
	explicit := Fingerprint(FingerprintInput{Text: "Welcome", VoiceID: "base", ModelRevision: "main"})
	assert.Equal(t, explicit, implicit)
}

func TestFingerprintNormalizesWhitespace(t *testing.T) {
	a := Fingerprint(FingerprintInput{Text: "  Welcome  "})
	b := Fingerprint(FingerprintInput{Text: "Welcome"})
	assert.Equal(t, b, a)
}

func TestFingerprintSensitiveToEachField(t *testing.T) {
	base := FingerprintInput{
		Text:          "Welcome",
		VoiceID:       "base",
		ModelRevision: "main",
		Quality:       "standard",
		Sampler:       "default",
	}

	variants := []FingerprintInput{
		{Text: "welcome", VoiceID: base.VoiceID, ModelRevision: base.ModelRevision, Quality: base.Quality, Sampler: base.Sampler},
		{Text: base.Text, VoiceID: "cloned-1", ModelRevision: base.ModelRevision, Quality: base.Quality, Sampler: base.Sampler},
		{Text: base.Text, VoiceID: base.VoiceID, ModelRevision: "v2", Quality: base.Quality, Sampler: base.Sampler},
		{Text: base.Text, VoiceID: base.VoiceID, ModelRevision: base.ModelRevision, Quality: "high", Sampler: base.Sampler},
		{Text: base.Text, VoiceID: base.VoiceID, ModelRevision: base.ModelRevision, Quality: base.Quality, Sampler: "greedy"},
	}

	ref := Fingerprint(base)
	for i, v := range variants {
		assert.NotEqual(t, ref, Fingerprint(v), "variant %d must change the fingerprint", i)
	}
}

func TestFingerprintNoCollisionsAcrossInputs(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		fp := Fingerprint(FingerprintInput{
			Text:    fmt.Sprintf("sentence number %d", i),
			VoiceID: fmt.Sprintf("voice-%d", i%7),
		})
		_, dup := seen[fp]
		require.False(t, dup, "collision at input %d", i)
		seen[fp] = struct{}{}
	}
}
