package command

import (
	"testing"

	"mobiremote/internal/models"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    models.Command
	}{
		{
			name: "target", topic: "mobiremote/cmnd/target", payload: "8",
			want: models.Command{Kind: models.CommandSetTarget, Value: 8},
		},
		{
			name: "negative target", topic: "mobiremote/cmnd/target", payload: "-4",
			want: models.Command{Kind: models.CommandSetTarget, Value: -4},
		},
		{
			name: "power on", topic: "mobiremote/cmnd/power", payload: "1",
			want: models.Command{Kind: models.CommandSetPower, On: true},
		},
		{
			name: "power off", topic: "mobiremote/cmnd/power", payload: "0",
			want: models.Command{Kind: models.CommandSetPower},
		},
		{
			name: "non-numeric power is off", topic: "mobiremote/cmnd/power", payload: "on",
			want: models.Command{Kind: models.CommandSetPower},
		},
		{
			name: "inittemp", topic: "a/b/cmnd/inittemp", payload: "12",
			want: models.Command{Kind: models.CommandInitTarget, Value: 12},
		},
		{
			name: "initpower", topic: "cmnd/initpower", payload: "7",
			want: models.Command{Kind: models.CommandInitPower, On: true},
		},
		{
			name: "status", topic: "mobiremote/cmnd/status", payload: "x",
			want: models.Command{Kind: models.CommandStatus},
		},
		{
			name: "legacy set", topic: "mobiremote/set", payload: "3",
			want: models.Command{Kind: models.CommandSetTarget, Value: 3},
		},
		{
			name: "legacy init", topic: "mobiremote/init", payload: "3",
			want: models.Command{Kind: models.CommandInitTarget, Value: 3},
		},
		{
			name: "lenient target", topic: "p/cmnd/target", payload: "  15abc",
			want: models.Command{Kind: models.CommandSetTarget, Value: 15},
		},
		{
			name: "non-numeric target is zero", topic: "p/cmnd/target", payload: "warm",
			want: models.Command{Kind: models.CommandSetTarget, Value: 0},
		},
		{
			name: "unknown suffix", topic: "mobiremote/cmnd/foo", payload: "bar",
			want: models.Command{Kind: models.CommandInvalid},
		},
		{
			name: "empty payload", topic: "mobiremote/cmnd/target", payload: "",
			want: models.Command{Kind: models.CommandInvalid},
		},
		{
			name: "empty status payload", topic: "mobiremote/cmnd/status", payload: "",
			want: models.Command{Kind: models.CommandInvalid},
		},
		{
			name: "suffix is case sensitive", topic: "mobiremote/cmnd/Target", payload: "4",
			want: models.Command{Kind: models.CommandInvalid},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.topic, []byte(tt.payload))
			if got.Kind != tt.want.Kind || got.Value != tt.want.Value || got.On != tt.want.On {
				t.Fatalf("Parse(%q, %q) = %+v, want kind=%s value=%d on=%t",
					tt.topic, tt.payload, got, tt.want.Kind, tt.want.Value, tt.want.On)
			}
			if got.Source != models.SourceMQTT {
				t.Fatalf("source: want %q, got %q", models.SourceMQTT, got.Source)
			}
			if got.Payload != tt.payload {
				t.Fatalf("raw payload not kept: %q", got.Payload)
			}
		})
	}
}

func TestParse_UnknownKeepsRaw(t *testing.T) {
	got := Parse("mobiremote/cmnd/foo", []byte("bar"))
	if got.Kind != models.CommandInvalid {
		t.Fatalf("want invalid, got %s", got.Kind)
	}
	if got.Suffix != "foo" || got.Payload != "bar" {
		t.Fatalf("raw input lost: %+v", got)
	}
	if got.String() != "invalid(foo=bar)" {
		t.Fatalf("String() = %q", got.String())
	}
}

func TestAtoi(t *testing.T) {
	tests := map[string]int{
		"":            0,
		"0":           0,
		"42":          42,
		"+42":         42,
		"-42":         -42,
		" \t\n-7":     -7,
		"12.9":        12,
		"- 3":         0,
		"--3":         0,
		"abc":         0,
		"99999999999": 1<<31 - 1,
		"-2147483648": -1 << 31,
		"-9999999999": -1 << 31,
	}
	for in, want := range tests {
		if got := Atoi(in); got != want {
			t.Errorf("Atoi(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestTopicAndFilter(t *testing.T) {
	if got := Topic("mobiremote/", "target"); got != "mobiremote/cmnd/target" {
		t.Fatalf("Topic = %q", got)
	}
	if got := Filter("mobiremote/"); got != "mobiremote/cmnd/#" {
		t.Fatalf("Filter = %q", got)
	}
}
