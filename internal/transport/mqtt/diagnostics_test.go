package mqtt

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const wirelessSample = `Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
 wlan0: 0000   49.  -61.  -256        0      0      0      0     12        0
`

func TestParseWireless(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "one interface", input: wirelessSample, want: -61, wantOK: true},
		{name: "header only", input: strings.Join(strings.Split(wirelessSample, "\n")[:2], "\n"), wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseWireless(bufio.NewScanner(strings.NewReader(tt.input)))
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("parseWireless() = %d, %v, want %d, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestHostDiagnostics_RSSI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wireless")
	if err := os.WriteFile(path, []byte(wirelessSample), 0o600); err != nil {
		t.Fatal(err)
	}

	rssi, ok := HostDiagnostics{WirelessPath: path}.RSSI()
	if !ok || rssi != -61 {
		t.Fatalf("RSSI() = %d, %v, want -61, true", rssi, ok)
	}

	if _, ok := (HostDiagnostics{WirelessPath: filepath.Join(t.TempDir(), "missing")}).RSSI(); ok {
		t.Fatal("RSSI() on a missing file reported ok")
	}
}
