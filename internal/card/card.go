// Package card builds Lark interactive-card messages from webhook events.
package card

// Header color themes accepted by Lark.
const (
	ColorBlue  = "blue"
	ColorGreen = "green"
)

// Message is the JSON document posted to a Lark incoming webhook.
type Message struct {
	MsgType string `json:"msg_type"`
	Card    Card   `json:"card"`
}

// Card is the interactive card body.
type Card struct {
	Config   CardConfig `json:"config"`
	Header   Header     `json:"header"`
	Elements []Element  `json:"elements"`
}

// CardConfig holds card rendering options.
type CardConfig struct {
	WideScreenMode bool `json:"wide_screen_mode"`
}

// Header is the card header: a color template plus a plain-text title.
type Header struct {
	Template string `json:"template"`
	Title    Text   `json:"title"`
}

// Text is a tagged text object ("plain_text" or "lark_md").
type Text struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

// Element is one ordered card block: a "div" text block or an "action"
// block holding buttons.
type Element struct {
	Tag     string   `json:"tag"`
	Text    *Text    `json:"text,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

// Action is a single button inside an action block.
type Action struct {
	Tag  string `json:"tag"`
	Text Text   `json:"text"`
	URL  string `json:"url"`
	Type string `json:"type"`
}

// newMessage assembles an interactive card with the given header and blocks.
func newMessage(color, title string, elements []Element) *Message {
	return &Message{
		MsgType: "interactive",
		Card: Card{
			Config: CardConfig{WideScreenMode: true},
			Header: Header{
				Template: color,
				Title:    Text{Tag: "plain_text", Content: title},
			},
			Elements: elements,
		},
	}
}

// markdown returns a "div" block with lark_md content.
func markdown(content string) Element {
	return Element{
		Tag:  "div",
		Text: &Text{Tag: "lark_md", Content: content},
	}
}

// primaryButton returns an "action" block with a single primary link button.
func primaryButton(label, url string) Element {
	return Element{
		Tag: "action",
		Actions: []Action{{
			Tag:  "button",
			Text: Text{Tag: "plain_text", Content: label},
			URL:  url,
			Type: "primary",
		}},
	}
}
