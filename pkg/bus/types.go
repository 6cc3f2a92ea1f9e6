package bus

import (
	"strings"

	"github.com/discogram/discogram/pkg/utils"
)

// Platform names one side of the bridge.
type Platform string

const (
	Discord  Platform = "discord"
	Telegram Platform = "telegram"
)

// Opposite returns the platform a message from p is relayed to.
func (p Platform) Opposite() Platform {
	if p == Discord {
		return Telegram
	}
	return Discord
}

// Kind is the relay's closed media taxonomy.
type Kind string

const (
	KindImage     Kind = "image"
	KindAnimation Kind = "animation"
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindDocument  Kind = "document"
)

// Kinds lists every Kind in declaration order.
var Kinds = []Kind{KindImage, KindAnimation, KindVideo, KindAudio, KindDocument}

type Attachment struct {
	URL      string `json:"url"`
	Kind     Kind   `json:"kind"`
	Spoiler  bool   `json:"spoiler,omitempty"`
	Filename string `json:"filename"`
}

// NewAttachment fills in the filename from the URL when the source did not
// supply one. The result always has a non-empty Filename and a valid Kind.
func NewAttachment(rawURL string, kind Kind, spoiler bool, filename string) Attachment {
	if filename == "" {
		filename = utils.FilenameFromURL(rawURL)
	}
	if kind == "" {
		kind = KindDocument
	}
	return Attachment{
		URL:      rawURL,
		Kind:     kind,
		Spoiler:  spoiler,
		Filename: filename,
	}
}

// Quote is the rendered context of a reply. An empty Author means the reply
// targets one of the bridge's own messages.
type Quote struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
}

// Message is the platform-neutral form of one relayed chat message.
type Message struct {
	Author      string       `json:"author"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Quote       *Quote       `json:"quote,omitempty"`
}

// Empty reports whether there is nothing worth relaying.
func (m *Message) Empty() bool {
	return m == nil || (strings.TrimSpace(m.Body) == "" && len(m.Attachments) == 0)
}
