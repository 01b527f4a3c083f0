package models

// Post presentation formats.
const (
	FormatStandard = "standard"
	FormatGallery  = "gallery"
	FormatVideo    = "video"
)

func ValidFormat(s string) bool {
	switch s {
	case FormatStandard, FormatGallery, FormatVideo:
		return true
	}
	return false
}

// Narration-audio pipeline states.
const (
	AudioNone   = "none"
	AudioQueued = "queued"
	AudioReady  = "ready"
	AudioError  = "error"
)

func ValidAudioStatus(s string) bool {
	switch s {
	case AudioNone, AudioQueued, AudioReady, AudioError:
		return true
	}
	return false
}

// PostExtras is the single supplementary row per post. Nullable columns come
// back as pointers; a nil pointer means the column was never written.
type PostExtras struct {
	PostID         int64    `json:"post_id"`
	Subtitle       *string  `json:"subtitle,omitempty"`
	Highlight      *bool    `json:"highlight,omitempty"`
	Format         *string  `json:"format,omitempty"`
	Gallery        *string  `json:"gallery,omitempty"` // JSON array of {id,url}
	VideoEmbed     *string  `json:"video_embed,omitempty"`
	AudioStatus    *string  `json:"audio_status,omitempty"`
	AudioURL       *string  `json:"audio_url,omitempty"`
	AudioLang      *string  `json:"audio_lang,omitempty"`
	AudioChars     *int64   `json:"audio_chars,omitempty"`
	AudioDuration  *float64 `json:"audio_duration,omitempty"`
	AudioUpdatedAt *string  `json:"audio_updated_at,omitempty"`
	UpdatedAt      string   `json:"updated_at"`
}
