package mqtt

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"
)

// Diagnostics reports the values announced on connect.
type Diagnostics interface {
	IP() string
	RSSI() (int, bool)
}

// HostDiagnostics reads the host's first non-loopback IPv4 address and the
// signal level of the first wireless interface from /proc/net/wireless.
type HostDiagnostics struct {
	WirelessPath string
}

func NewHostDiagnostics() HostDiagnostics {
	return HostDiagnostics{WirelessPath: "/proc/net/wireless"}
}

func (HostDiagnostics) IP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok || ipn.IP.IsLoopback() {
			continue
		}
		if v4 := ipn.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return ""
}

func (d HostDiagnostics) RSSI() (int, bool) {
	f, err := os.Open(d.WirelessPath)
	if err != nil {
		return 0, false
	}
	defer f.Close()
	return parseWireless(bufio.NewScanner(f))
}

// parseWireless returns the signal level (dBm) of the first interface row.
// Rows look like:
//
//	wlan0: 0000   70.  -40.  -256        0      0      0      0      0        0
func parseWireless(sc *bufio.Scanner) (int, bool) {
	for sc.Scan() {
		line := sc.Text()
		colon := strings.IndexByte(line, ':')
		if colon < 0 || strings.Contains(line[:colon], "|") {
			continue
		}
		fields := strings.Fields(line[colon+1:])
		if len(fields) < 3 {
			continue
		}
		level, err := strconv.ParseFloat(strings.TrimSuffix(fields[2], "."), 64)
		if err != nil {
			continue
		}
		return int(level), true
	}
	return 0, false
}
