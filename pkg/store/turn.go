package store

import (
	"encoding/json"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionKey identifies one conversation. SessionID is the client-side
// timestamp the session was opened with.
type SessionKey struct {
	UserName  string `json:"user_name"`
	SessionID int64  `json:"session_id"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%d", k.UserName, k.SessionID)
}

// Turn is one immutable entry of a session history.
type Turn struct {
	Role      Role        `json:"role"`
	Content   TurnContent `json:"content"`
	ModelName string      `json:"model_name,omitempty"`
}

// TurnContent holds the text of a turn and the images attached to it.
// It is encoded as a plain JSON string when there are no images and as a
// multimodal parts list otherwise.
type TurnContent struct {
	Text   string
	Images []string
}

type contentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

func TextContent(text string) TurnContent {
	return TurnContent{Text: text}
}

func (c TurnContent) MarshalJSON() ([]byte, error) {
	if len(c.Images) == 0 {
		return json.Marshal(c.Text)
	}

	parts := make([]contentPart, 0, len(c.Images)+1)
	parts = append(parts, contentPart{Type: "text", Text: c.Text})
	for _, url := range c.Images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURLPart{URL: url}})
	}
	return json.Marshal(parts)
}

func (c *TurnContent) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*c = TurnContent{Text: text}
		return nil
	}

	var parts []contentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("turn content is neither text nor parts: %w", err)
	}

	out := TurnContent{}
	for _, p := range parts {
		switch p.Type {
		case "text":
			if out.Text == "" {
				out.Text = p.Text
			} else {
				out.Text += "\n" + p.Text
			}
		case "image_url":
			if p.ImageURL != nil {
				out.Images = append(out.Images, p.ImageURL.URL)
			}
		}
	}
	*c = out
	return nil
}

// LastQuestion picks the sidebar preview of a session: the user question
// of the latest exchange, which is the second to last turn once an answer
// was recorded.
func LastQuestion(turns []Turn) string {
	switch len(turns) {
	case 0:
		return ""
	case 1:
		return turns[0].Content.Text
	default:
		return turns[len(turns)-2].Content.Text
	}
}
