// Package command turns inbound topic/payload pairs into typed commands.
package command

import (
	"strings"

	"mobiremote/internal/models"
)

// CommandSegment sits between the topic prefix and the command suffix.
const CommandSegment = "cmnd/"

var suffixes = map[string]models.CommandKind{
	"target":    models.CommandSetTarget,
	"power":     models.CommandSetPower,
	"inittemp":  models.CommandInitTarget,
	"initpower": models.CommandInitPower,
	"status":    models.CommandStatus,

	// older firmware topic names
	"set":  models.CommandSetTarget,
	"init": models.CommandInitTarget,
}

// Parse maps a topic and payload to a command. The suffix after the last '/'
// selects the kind. An unknown suffix or an empty payload yields an invalid
// command carrying the raw input.
func Parse(topic string, payload []byte) models.Command {
	suffix := topic
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		suffix = topic[i+1:]
	}
	cmd := FromSuffix(suffix, string(payload))
	cmd.Source = models.SourceMQTT
	return cmd
}

// FromSuffix is Parse without the topic, for callers that already know the
// command name.
func FromSuffix(suffix, payload string) models.Command {
	cmd := models.Command{Suffix: suffix, Payload: payload}

	kind, ok := suffixes[suffix]
	if !ok || payload == "" {
		return cmd
	}

	n := Atoi(payload)
	switch kind {
	case models.CommandSetTarget, models.CommandInitTarget:
		cmd.Value = n
	case models.CommandSetPower, models.CommandInitPower:
		cmd.On = n != 0
	}
	cmd.Kind = kind
	return cmd
}

// Topic joins the prefix, the command segment and a suffix, e.g.
// "mobiremote/" + "cmnd/" + "target".
func Topic(prefix, suffix string) string {
	return prefix + CommandSegment + suffix
}

// Filter is the subscription filter that covers every command topic.
func Filter(prefix string) string {
	return prefix + CommandSegment + "#"
}

// Atoi parses a signed decimal prefix the way C atoi does: leading
// whitespace is skipped, an optional sign is accepted and digits are read up
// to the first non-digit. Input without digits yields 0. Values saturate at
// the int32 bounds.
func Atoi(s string) int {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	var n int64
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int64(s[i]-'0')
		if n > 1<<31 {
			n = 1 << 31
		}
	}
	if neg {
		n = -n
	}
	switch {
	case n > 1<<31-1:
		n = 1<<31 - 1
	case n < -1<<31:
		n = -1 << 31
	}
	return int(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
