// Package discord renders classified container events and monitor
// lifecycle notices as Discord webhook payloads.
package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/Jacob-Tate/docker-swarm-discord-monitor/internal/event"
)

// Embed accent colors (0xRRGGBB).
const (
	colorStarted   = 0x00ff00
	colorStopped   = 0xff0000
	colorRestarted = 0xffaa00
	colorDefault   = 0x888888
	colorStartup   = 0x0099ff
	colorShutdown  = 0xff9900
)

const (
	footerText = "Docker Swarm Monitor"
	footerIcon = "https://raw.githubusercontent.com/docker/compose/v2/logo.png"
)

// NodeInfo identifies the node the monitor runs on. Platform and Kernel
// are optional enrichment shown in the startup notice.
type NodeInfo struct {
	Hostname string
	Platform string
	Kernel   string
}

// Formatter builds webhook payloads carrying a fixed sender identity
// and node identity. Total over notification kinds: anything the
// classifier does not produce today still renders with the default
// color and description.
type Formatter struct {
	username  string
	avatarURL string
	node      NodeInfo
}

// NewFormatter creates a Formatter.
func NewFormatter(username, avatarURL string, node NodeInfo) *Formatter {
	return &Formatter{
		username:  username,
		avatarURL: avatarURL,
		node:      node,
	}
}

// Event renders a classified container event.
func (f *Formatter) Event(ev event.Classified) Payload {
	return f.payload(Embed{
		Title:     fmt.Sprintf("%s Container %s", kindEmoji(ev.Kind), kindTitle(ev.Kind)),
		Color:     kindColor(ev.Kind),
		Timestamp: ev.OccurredAt.UTC().Format(time.RFC3339),
		Fields: []Field{
			{Name: "📦 Container", Value: code(ev.Entity), Inline: true},
			{Name: "🔧 Service", Value: code(ev.Service), Inline: true},
			{Name: "🖥️ Node", Value: code(f.node.Hostname), Inline: true},
		},
		Description: kindDescription(ev.Kind),
		Footer:      Footer{Text: footerText, IconURL: footerIcon},
	})
}

// Startup renders the notice sent when monitoring begins. It bypasses
// the classifier and dedup window entirely.
func (f *Formatter) Startup() Payload {
	fields := []Field{
		{Name: "🖥️ Node", Value: code(f.node.Hostname), Inline: true},
		{Name: "📊 Status", Value: "Monitoring Active", Inline: true},
	}
	if f.node.Platform != "" {
		fields = append(fields, Field{Name: "💿 Platform", Value: code(f.node.Platform), Inline: true})
	}
	if f.node.Kernel != "" {
		fields = append(fields, Field{Name: "⚙️ Kernel", Value: code(f.node.Kernel), Inline: true})
	}
	return f.payload(Embed{
		Title:       "🚀 Docker Swarm Monitor Started",
		Color:       colorStartup,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Fields:      fields,
		Description: "Now monitoring container start/stop events",
		Footer:      Footer{Text: footerText, IconURL: footerIcon},
	})
}

// Shutdown renders the notice sent on graceful termination.
func (f *Formatter) Shutdown() Payload {
	return f.payload(Embed{
		Title:     "🛑 Docker Swarm Monitor Stopped",
		Color:     colorShutdown,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Fields: []Field{
			{Name: "🖥️ Node", Value: code(f.node.Hostname), Inline: true},
		},
		Description: "Container monitoring has been stopped",
		Footer:      Footer{Text: footerText, IconURL: footerIcon},
	})
}

func (f *Formatter) payload(embed Embed) Payload {
	return Payload{
		Username:  f.username,
		AvatarURL: f.avatarURL,
		Embeds:    []Embed{embed},
	}
}

func kindColor(k event.Kind) int {
	switch k {
	case event.KindStarted:
		return colorStarted
	case event.KindStopped:
		return colorStopped
	case event.KindRestarted:
		return colorRestarted
	default:
		return colorDefault
	}
}

func kindEmoji(k event.Kind) string {
	switch k {
	case event.KindStarted:
		return "🟢"
	case event.KindStopped:
		return "🔴"
	case event.KindRestarted:
		return "🟡"
	default:
		return "⚪"
	}
}

func kindDescription(k event.Kind) string {
	switch k {
	case event.KindStarted:
		return "✅ Container is now running"
	case event.KindStopped:
		return "❌ Container has stopped"
	case event.KindRestarted:
		return "🔄 Container has been restarted"
	default:
		return "Container state changed"
	}
}

func kindTitle(k event.Kind) string {
	switch k {
	case event.KindStarted:
		return "Started"
	case event.KindStopped:
		return "Stopped"
	case event.KindRestarted:
		return "Restarted"
	case event.KindUnknown:
		return "Event"
	}
	s := string(k)
	return strings.ToUpper(s[:1]) + s[1:]
}

func code(v string) string {
	return fmt.Sprintf("`%s`", v)
}
