package way_nav

import (
	"fmt"
	"net"
)

// OutputSender sends turn cues over UDP as CSV.
type OutputSender struct {
	conn *net.UDPConn
}

// NewOutputSender creates a UDP sender for the given address. An empty
// address yields a sender that drops everything.
func NewOutputSender(addr string) (*OutputSender, error) {
	if addr == "" {
		return &OutputSender{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, err
	}
	return &OutputSender{conn: conn}, nil
}

// Close releases the UDP socket.
func (s *OutputSender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Send writes "t,index,kind,angle,text" as a CSV payload.
func (s *OutputSender) Send(cue Cue) {
	if s == nil || s.conn == nil {
		return
	}
	_, _ = s.conn.Write([]byte(FormatCue(cue)))
}

// FormatCue renders the CSV wire form of a cue.
func FormatCue(cue Cue) string {
	return fmt.Sprintf("%.3f,%d,%s,%.2f,%s", cue.T, cue.Index, cue.Kind.String(), cue.Angle, cue.Text())
}
