// Package i18n resolves the short localized phrases used by push
// notification bodies when a message carries media instead of text.
package i18n

import "github.com/chattr-app/chattr-go-api/internal/models"

// Localization keys understood by client notification templates.
const (
	LocKeyGotMessage = "NOTIFICATION_GOT_MESSAGE"
	LocKeyGotImage   = "NOTIFICATION_GOT_IMAGE"
	LocKeyGotVideo   = "NOTIFICATION_GOT_VIDEO"
	LocKeyGotVoice   = "NOTIFICATION_GOT_VOICE"
)

// DefaultLocale is used when a user has no locale or an unknown one.
const DefaultLocale = "en-US"

var catalog = map[string]map[string]string{
	"en-US": {
		LocKeyGotMessage: "New message",
		LocKeyGotImage:   "Sent a photo",
		LocKeyGotVideo:   "Sent a video",
		LocKeyGotVoice:   "Sent a voice message",
	},
	"ko-KR": {
		LocKeyGotMessage: "새 메시지",
		LocKeyGotImage:   "사진을 보냈습니다",
		LocKeyGotVideo:   "동영상을 보냈습니다",
		LocKeyGotVoice:   "음성 메시지를 보냈습니다",
	},
}

// MediaLocKey maps media to the localization key clients substitute.
func MediaLocKey(media *models.MessageMedia) string {
	if media == nil {
		return LocKeyGotMessage
	}

	switch media.Type {
	case models.MediaTypeImage:
		return LocKeyGotImage
	case models.MediaTypeVideo:
		return LocKeyGotVideo
	case models.MediaTypeVoice:
		return LocKeyGotVoice
	default:
		return LocKeyGotMessage
	}
}

// MediaPlaceholder returns the localized phrase for a media message body.
func MediaPlaceholder(media *models.MessageMedia, locale string) string {
	phrases, ok := catalog[locale]
	if !ok {
		phrases = catalog[DefaultLocale]
	}

	return phrases[MediaLocKey(media)]
}

// Locales lists the locales the catalog covers.
func Locales() []string {
	return []string{"en-US", "ko-KR"}
}
