// Package capture turns conversation payloads sent by the browser
// extension into clip drafts.
package capture

import (
	"strings"
	"time"

	"github.com/hpungsan/snipboard/internal/clip"
	"github.com/hpungsan/snipboard/internal/errors"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Payload is what the extension posts: the selected messages plus page
// provenance.
type Payload struct {
	Messages    []Message `json:"messages"`
	SourceURL   string    `json:"sourceUrl"`
	SourceTitle string    `json:"sourceTitle"`
	CapturedAt  int64     `json:"capturedAt"`
}

// Draft flattens the payload into a clip draft for the given section.
// Each message renders as an upper-cased role line followed by its
// content, with a blank line between messages. The title is taken from
// the page title, falling back to the first message's opening line.
func Draft(p Payload, sectionID string) (clip.Clip, error) {
	if len(p.Messages) == 0 {
		return clip.Clip{}, errors.NewInvalidRequest("capture payload has no messages")
	}

	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		role := strings.ToUpper(strings.TrimSpace(m.Role))
		if role == "" {
			role = "UNKNOWN"
		}
		parts = append(parts, role+":\n"+m.Content)
	}

	capturedAt := p.CapturedAt
	if capturedAt == 0 {
		capturedAt = time.Now().UnixMilli()
	}

	return clip.Clip{
		Title:       draftTitle(p),
		Text:        strings.Join(parts, "\n\n"),
		SectionID:   sectionID,
		SourceURL:   p.SourceURL,
		SourceTitle: p.SourceTitle,
		CapturedAt:  capturedAt,
	}, nil
}

func draftTitle(p Payload) string {
	if t := strings.TrimSpace(p.SourceTitle); t != "" {
		return t
	}
	first := strings.TrimSpace(p.Messages[0].Content)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = strings.TrimSpace(first[:i])
	}
	const maxTitle = 80
	if len(first) > maxTitle {
		first = first[:maxTitle]
	}
	return first
}
