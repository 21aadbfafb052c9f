package discord

// Payload is the JSON body POSTed to a Discord webhook. Immutable once
// built; passed by value to the delivery client.
type Payload struct {
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Embeds    []Embed `json:"embeds"`
}

// Embed is a single rich-content block inside a webhook message.
type Embed struct {
	Title string `json:"title"`
	// Color is the accent color as 0xRRGGBB.
	Color int `json:"color"`
	// Timestamp is RFC3339 / ISO-8601.
	Timestamp   string  `json:"timestamp"`
	Fields      []Field `json:"fields"`
	Description string  `json:"description"`
	Footer      Footer  `json:"footer"`
}

// Field is a named value rendered inside an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Footer is the embed footer line.
type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url"`
}
