package relay

import (
	"strings"

	"github.com/discogram/discogram/pkg/bus"
	"github.com/discogram/discogram/pkg/utils"
)

// Classify maps a content-type (or any media descriptor with a type prefix)
// and the filename or URL it came with to exactly one Kind.
func Classify(contentType, filenameOrURL string) bus.Kind {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image"):
		if utils.Extension(mediaName(filenameOrURL)) == ".gif" {
			return bus.KindAnimation
		}
		return bus.KindImage
	case strings.HasPrefix(ct, "video"):
		return bus.KindVideo
	case strings.HasPrefix(ct, "audio"):
		return bus.KindAudio
	default:
		return bus.KindDocument
	}
}

// mediaName strips the query and fragment from URLs. Plain filenames are
// used as-is, since '#' and '?' are legal in them.
func mediaName(filenameOrURL string) string {
	if strings.Contains(filenameOrURL, "://") {
		return utils.FilenameFromURL(filenameOrURL)
	}
	return filenameOrURL
}

// ClassifyEmoji classifies an inline custom emoji.
func ClassifyEmoji(animated bool) bus.Kind {
	if animated {
		return bus.KindAnimation
	}
	return bus.KindImage
}

// ClassifySticker classifies a sticker by whether it moves.
func ClassifySticker(animated bool) bus.Kind {
	if animated {
		return bus.KindAnimation
	}
	return bus.KindImage
}

// ClassifyEmbed classifies a link-preview embed by its embed type and the
// media URL picked for it.
func ClassifyEmbed(embedType, mediaURL string) bus.Kind {
	switch strings.ToLower(embedType) {
	case "video":
		return bus.KindVideo
	case "gifv":
		return bus.KindAnimation
	case "image":
		return Classify("image", mediaURL)
	default:
		return Classify("", mediaURL)
	}
}
