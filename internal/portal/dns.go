// Package portal implements the captive provisioning portal: a catch-all
// DNS responder plus a tiny HTTP server that serves the configuration form
// and persists submitted settings. Both sides are polled from the
// orchestration loop and never block.
package portal

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
)

const dnsAnswerTTL = 60 // seconds

// dnsHeader is the fixed 12-byte DNS message header.
type dnsHeader struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// dnsAnswer is the fixed-size tail of a type-A answer using a compression
// pointer back to the question name.
type dnsAnswer struct {
	NamePtr  uint16 // 0xC00C: offset 12, the question name
	Type     uint16 // A
	Class    uint16 // IN
	TTL      uint32
	RDLength uint16
	Addr     [4]byte
}

// BuildResponse answers any DNS query with the given IPv4 address. The
// response echoes the query's transaction id and question section and
// claims one authoritative-looking answer. Queries shorter than a header
// are rejected.
func BuildResponse(query []byte, ip net.IP) ([]byte, error) {
	if len(query) < 12 {
		return nil, fmt.Errorf("dns query too short: %d bytes", len(query))
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("not an IPv4 address: %v", ip)
	}

	hdr := dnsHeader{
		ID:      binary.BigEndian.Uint16(query[0:2]),
		Flags:   0x8180, // standard response, recursion available, no error
		QDCount: binary.BigEndian.Uint16(query[4:6]),
		ANCount: 1,
	}
	ans := dnsAnswer{
		NamePtr:  0xC00C,
		Type:     1,
		Class:    1,
		TTL:      dnsAnswerTTL,
		RDLength: 4,
	}
	copy(ans.Addr[:], ip4)

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, hdr)
	buf.Write(query[12:]) // question section, echoed verbatim
	binary.Write(&buf, binary.BigEndian, ans)
	return buf.Bytes(), nil
}

// DNSServer answers every name lookup with the portal's address so any
// page a client opens lands on the configuration form.
type DNSServer struct {
	conn *net.UDPConn
	ip   net.IP
	log  zerolog.Logger
}

// NewDNSServer binds the UDP responder. addr is normally ":53"; tests
// pass a loopback ephemeral port. ip is the address handed out in answers.
func NewDNSServer(addr, ip string, log zerolog.Logger) (*DNSServer, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return nil, fmt.Errorf("bad portal ip %q", ip)
	}
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve dns addr: %w", err)
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind dns responder: %w", err)
	}
	log.Info().Str("addr", conn.LocalAddr().String()).Msg("dns responder up")
	return &DNSServer{conn: conn, ip: parsed, log: log}, nil
}

// Addr returns the bound address, for tests that use an ephemeral port.
func (s *DNSServer) Addr() net.Addr { return s.conn.LocalAddr() }

// Poll answers at most one pending query and returns immediately when
// none is waiting. Malformed queries are dropped.
func (s *DNSServer) Poll() {
	s.conn.SetReadDeadline(time.Now())
	buf := make([]byte, 512)
	n, addr, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		var nerr net.Error
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			s.log.Debug().Err(err).Msg("dns read")
		}
		return
	}
	resp, err := BuildResponse(buf[:n], s.ip)
	if err != nil {
		s.log.Debug().Err(err).Msg("dropping dns query")
		return
	}
	if _, err := s.conn.WriteToUDP(resp, addr); err != nil {
		s.log.Debug().Err(err).Msg("dns write")
	}
}

// Close releases the socket.
func (s *DNSServer) Close() error {
	return s.conn.Close()
}
