package relay

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/discogram/discogram/pkg/bus"
)

func makeAttachments(n int) []bus.Attachment {
	out := make([]bus.Attachment, n)
	for i := range out {
		out[i] = bus.NewAttachment(fmt.Sprintf("https://cdn.example.com/%d.png", i), bus.KindImage, i%2 == 0, "")
	}
	return out
}

func TestPlanEmpty(t *testing.T) {
	if got := Plan(nil, "caption", 10, 50); got != nil {
		t.Fatalf("expected no batches, got %+v", got)
	}
}

func TestPlanSingle(t *testing.T) {
	got := Plan(makeAttachments(1), "caption", 10, 50)
	if len(got) != 1 {
		t.Fatalf("expected one batch, got %d", len(got))
	}
	if got[0].Group {
		t.Fatalf("single item must not be a group")
	}
	if got[0].Caption != "caption" || len(got[0].Items) != 1 {
		t.Fatalf("unexpected batch %+v", got[0])
	}
}

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		n       int
		batches int
	}{
		{2, 1},
		{3, 1},
		{10, 1},
		{11, 2},
		{25, 3},
		{50, 5},
		{51, 5},
		{120, 5},
	}

	for _, tc := range tests {
		items := makeAttachments(tc.n)
		got := Plan(items, "cap", 10, 50)
		if len(got) != tc.batches {
			t.Fatalf("n=%d: got %d batches want %d", tc.n, len(got), tc.batches)
		}

		idx := 0
		for i, b := range got {
			if len(b.Items) > 10 {
				t.Fatalf("n=%d: batch %d has %d items", tc.n, i, len(b.Items))
			}
			if b.Group != (len(b.Items) > 1) {
				t.Fatalf("n=%d: batch %d group=%v with %d items", tc.n, i, b.Group, len(b.Items))
			}
			if (i == 0) != (b.Caption == "cap") {
				t.Fatalf("n=%d: batch %d caption=%q", tc.n, i, b.Caption)
			}
			for _, it := range b.Items {
				if it.URL != items[idx].URL || it.Spoiler != items[idx].Spoiler {
					t.Fatalf("n=%d: order not preserved at %d", tc.n, idx)
				}
				idx++
			}
		}
		want := tc.n
		if want > 50 {
			want = 50
		}
		if idx != want {
			t.Fatalf("n=%d: emitted %d items want %d", tc.n, idx, want)
		}
	}
}

func TestPlanTrailingSingleIsNotGroup(t *testing.T) {
	got := Plan(makeAttachments(11), "cap", 10, 50)
	if len(got) != 2 || got[1].Group || len(got[1].Items) != 1 || got[1].Caption != "" {
		t.Fatalf("unexpected trailing batch %+v", got)
	}
}

func TestPlanDefaults(t *testing.T) {
	got := Plan(makeAttachments(60), "", 0, 0)
	if len(got) != 5 {
		t.Fatalf("expected default limits to give 5 batches, got %d", len(got))
	}
}

func TestSplitText(t *testing.T) {
	if got := splitText("short", 10, DiscordMarkdown); len(got) != 1 || got[0] != "short" {
		t.Fatalf("unexpected split %q", got)
	}

	text := strings.Repeat("a", 25)
	got := splitText(text, 10, DiscordMarkdown)
	if len(got) != 3 || strings.Join(got, "") != text {
		t.Fatalf("unexpected split %q", got)
	}

	lines := "aaaaaaaa\nbbbbbbbb\ncccc"
	got = splitText(lines, 10, DiscordMarkdown)
	if got[0] != "aaaaaaaa\n" {
		t.Fatalf("expected newline break, got %q", got)
	}
	if strings.Join(got, "") != lines {
		t.Fatalf("split lost text: %q", got)
	}

	unicode := strings.Repeat("ж", 15)
	for _, c := range splitText(unicode, 10, DiscordMarkdown) {
		if utf8.RuneCountInString(c) > 10 {
			t.Fatalf("chunk too long: %q", c)
		}
	}
}

func TestSplitTextKeepsEscapes(t *testing.T) {
	text := `aaaaaaaaa\.bbbb`
	got := splitText(text, 10, DiscordMarkdown)
	if got[0] != "aaaaaaaaa" || !strings.HasPrefix(got[1], `\.`) {
		t.Fatalf("escape split across chunks: %q", got)
	}
	if strings.Join(got, "") != text {
		t.Fatalf("split lost text: %q", got)
	}
}

func TestSplitTextTelegramCountsParsedUTF16(t *testing.T) {
	escaped := EscapeMarkdownV2(strings.Repeat(".", 10))
	if got := splitText(escaped, 10, TelegramMarkdownV2); len(got) != 1 {
		t.Fatalf("escapes should not count toward the limit, got %q", got)
	}

	emoji := strings.Repeat("😀", 5)
	got := splitText(emoji, 4, TelegramMarkdownV2)
	if len(got) != 3 || got[0] != "😀😀" || got[2] != "😀" {
		t.Fatalf("unexpected split %q", got)
	}

	text := `aaaaaaaaa\.bbbb`
	got = splitText(text, 10, TelegramMarkdownV2)
	if got[0] != `aaaaaaaaa\.` || strings.Join(got, "") != text {
		t.Fatalf("unexpected split %q", got)
	}
}
