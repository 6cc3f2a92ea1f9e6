package relay

import (
	"strings"
	"unicode/utf16"

	"github.com/discogram/discogram/pkg/bus"
)

// Dialect describes a destination's markup rules.
type Dialect struct {
	Name string
	// Emphasis wraps author names on both sides.
	Emphasis string
	// QuoteMarker starts every line of a quoted block.
	QuoteMarker string
	// Escape neutralises control characters in literal text. Nil means the
	// dialect needs no escaping.
	Escape func(string) string
	// Widths reports how much each rune adds to the length the platform
	// enforces. Nil counts one per rune.
	Widths func([]rune) []int
}

var (
	// DiscordMarkdown is Discord's message markdown. Relayed text is passed
	// through unescaped.
	DiscordMarkdown = Dialect{
		Name:        "discord-markdown",
		Emphasis:    "**",
		QuoteMarker: "> ",
	}

	// TelegramMarkdownV2 is Telegram's MarkdownV2 parse mode.
	TelegramMarkdownV2 = Dialect{
		Name:        "telegram-markdown-v2",
		Emphasis:    "*",
		QuoteMarker: ">",
		Escape:      EscapeMarkdownV2,
		Widths:      MarkdownV2Widths,
	}
)

const markdownV2Specials = "_*[]()~`>#+-=|{}.!"

// EscapeMarkdownV2 backslash-escapes every MarkdownV2 control character and
// leaves everything else untouched.
func EscapeMarkdownV2(s string) string {
	if !strings.ContainsAny(s, markdownV2Specials) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + len(s)/4)
	for _, r := range s {
		if strings.ContainsRune(markdownV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MarkdownV2Widths counts what Telegram measures: UTF-16 code units of the
// text left after parsing. Escape backslashes and unescaped markup
// characters count zero.
func MarkdownV2Widths(runes []rune) []int {
	widths := make([]int, len(runes))
	escaped := false
	for i, r := range runes {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
			continue
		case strings.ContainsRune(markdownV2Specials, r):
			continue
		}
		widths[i] = utf16Len(r)
	}
	return widths
}

func utf16Len(r rune) int {
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}

func (d Dialect) widths(runes []rune) []int {
	if d.Widths != nil {
		return d.Widths(runes)
	}
	widths := make([]int, len(runes))
	for i := range widths {
		widths[i] = 1
	}
	return widths
}

// Length is the size of s as the destination counts it against its limits.
func (d Dialect) Length(s string) int {
	n := 0
	for _, w := range d.widths([]rune(s)) {
		n += w
	}
	return n
}

func (d Dialect) escape(s string) string {
	if d.Escape == nil {
		return s
	}
	return d.Escape(s)
}

func (d Dialect) emphasize(s string) string {
	return d.Emphasis + s + d.Emphasis
}

// Format renders msg for the destination dialect: an optional quote block
// followed by "<author>: <body>". Literal text is escaped once before any
// markup is added.
func Format(msg *bus.Message, d Dialect) string {
	result := d.emphasize(d.escape(msg.Author)) + ": " + d.escape(msg.Body)

	if msg.Quote == nil || msg.Quote.Text == "" {
		return result
	}

	quoted := strings.ReplaceAll(d.escape(msg.Quote.Text), "\n", "\n"+d.QuoteMarker)
	if msg.Quote.Author != "" {
		return d.QuoteMarker + d.emphasize(d.escape(msg.Quote.Author)) + ": " + quoted + "\n" + result
	}
	return d.QuoteMarker + quoted + "\n" + result
}
