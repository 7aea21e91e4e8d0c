package gcm

import (
	"math"
	"time"

	"github.com/tispr/loopback-component-push/pkg/push"
)

// NewMessage translates a generic notification into the GCM wire message.
// It is a total function: no I/O, no failure modes, and deterministic for
// a fixed now (the clock only matters when ExpirationTime is set).
//
// Presence is tested by nil/empty checks, never truthiness: a badge of 0
// and a custom value of false are forwarded.
func NewMessage(n *push.Notification, now time.Time) *Message {
	msg := &Message{
		Data:        make(map[string]any),
		CollapseKey: n.CollapseKey,
	}

	if n.DelayWhileIdle != nil {
		v := *n.DelayWhileIdle
		msg.DelayWhileIdle = &v
	}
	msg.TimeToLive = timeToLive(n, now)

	if n.DataOnly {
		flattenDecoration(n, msg.Data)
		msg.Data["dataOnly"] = true
	} else {
		msg.Notification = decorationBlock(n)
	}

	for key, value := range n.Custom {
		if value == nil {
			continue
		}
		if !n.DataOnly && decorationKeys[key] {
			// Consumed by the decoration block; must not reappear as data.
			continue
		}
		msg.Data[key] = value
	}

	return msg
}

// decorationKeys are the notification attributes rendered into the
// decoration block (or flattened, for data-only messages).
var decorationKeys = map[string]bool{
	"alert":       true,
	"messageFrom": true,
	"icon":        true,
	"sound":       true,
	"badge":       true,
	"tag":         true,
	"color":       true,
	"clickAction": true,
}

// decorationBlock builds the notification sub-object from whichever
// decoration fields are present. Returns nil when none are, so the key is
// omitted from the wire entirely.
func decorationBlock(n *push.Notification) *Notification {
	block := &Notification{
		Title:       n.MessageFrom,
		Body:        n.Alert,
		Icon:        n.Icon,
		Sound:       n.Sound,
		Tag:         n.Tag,
		Color:       n.Color,
		ClickAction: n.ClickAction,
	}
	if n.Badge != nil {
		v := *n.Badge
		block.Badge = &v
	}
	if *block == (Notification{}) {
		return nil
	}
	return block
}

// flattenDecoration copies the decoration fields into the flat data map,
// raw keys alongside the derived title/body.
func flattenDecoration(n *push.Notification, data map[string]any) {
	if n.MessageFrom != "" {
		data["messageFrom"] = n.MessageFrom
		data["title"] = n.MessageFrom
	}
	if n.Alert != "" {
		data["alert"] = n.Alert
		data["body"] = n.Alert
	}
	if n.Badge != nil {
		data["badge"] = *n.Badge
	}
	if n.Icon != "" {
		data["icon"] = n.Icon
	}
	if n.Sound != "" {
		data["sound"] = n.Sound
	}
	if n.Tag != "" {
		data["tag"] = n.Tag
	}
	if n.Color != "" {
		data["color"] = n.Color
	}
	if n.ClickAction != "" {
		data["clickAction"] = n.ClickAction
	}
}

// timeToLive resolves the expiration fields: a relative interval wins,
// then an absolute time converted against now (clamped at zero), else the
// field is omitted.
func timeToLive(n *push.Notification, now time.Time) *int {
	if n.ExpirationInterval != nil {
		v := *n.ExpirationInterval
		return &v
	}
	if n.ExpirationTime != nil {
		secs := int(math.Round(n.ExpirationTime.Sub(now).Seconds()))
		if secs < 0 {
			secs = 0
		}
		return &secs
	}
	return nil
}
