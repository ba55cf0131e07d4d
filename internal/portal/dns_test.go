package portal

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// sampleQuery builds a minimal A query for the given name.
func sampleQuery(txid uint16, name string) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, dnsHeader{ID: txid, Flags: 0x0100, QDCount: 1})
	for _, label := range bytes.Split([]byte(name), []byte(".")) {
		buf.WriteByte(byte(len(label)))
		buf.Write(label)
	}
	buf.WriteByte(0)
	binary.Write(&buf, binary.BigEndian, uint16(1)) // type A
	binary.Write(&buf, binary.BigEndian, uint16(1)) // class IN
	return buf.Bytes()
}

func TestBuildResponseLayout(t *testing.T) {
	query := sampleQuery(0xBEEF, "connectivitycheck.gstatic.com")
	resp, err := BuildResponse(query, net.IPv4(192, 168, 4, 1))
	if err != nil {
		t.Fatal(err)
	}

	if got := binary.BigEndian.Uint16(resp[0:2]); got != 0xBEEF {
		t.Errorf("txid = %#04x, want 0xBEEF", got)
	}
	if got := binary.BigEndian.Uint16(resp[2:4]); got != 0x8180 {
		t.Errorf("flags = %#04x, want 0x8180", got)
	}
	if got := binary.BigEndian.Uint16(resp[4:6]); got != 1 {
		t.Errorf("qdcount = %d, want 1", got)
	}
	if got := binary.BigEndian.Uint16(resp[6:8]); got != 1 {
		t.Errorf("ancount = %d, want 1", got)
	}

	// Question section echoed verbatim.
	question := query[12:]
	if !bytes.Equal(resp[12:12+len(question)], question) {
		t.Error("question section not echoed")
	}

	// Fixed answer tail.
	ans := resp[12+len(question):]
	want := []byte{
		0xC0, 0x0C, // name pointer
		0x00, 0x01, // type A
		0x00, 0x01, // class IN
		0x00, 0x00, 0x00, 0x3C, // TTL 60
		0x00, 0x04, // rdlength
		192, 168, 4, 1,
	}
	if !bytes.Equal(ans, want) {
		t.Errorf("answer = % x, want % x", ans, want)
	}
}

func TestBuildResponseRejectsShortQuery(t *testing.T) {
	if _, err := BuildResponse(make([]byte, 11), net.IPv4(10, 42, 0, 1)); err == nil {
		t.Error("expected error for short query")
	}
}

func TestBuildResponseRejectsNonIPv4(t *testing.T) {
	if _, err := BuildResponse(sampleQuery(1, "x.example"), net.ParseIP("::1")); err == nil {
		t.Error("expected error for IPv6 portal address")
	}
}

func TestDNSServerAnswersQuery(t *testing.T) {
	srv, err := NewDNSServer("127.0.0.1:0", "10.42.0.1", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	client, err := net.Dial("udp4", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if _, err := client.Write(sampleQuery(7, "example.com")); err != nil {
		t.Fatal(err)
	}

	// The query needs a moment to land in the socket buffer; poll until
	// an answer comes back.
	buf := make([]byte, 512)
	var n int
	deadline := time.Now().Add(2 * time.Second)
	for {
		srv.Poll()
		client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
		n, err = client.Read(buf)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("no dns answer")
		}
	}
	if got := binary.BigEndian.Uint16(buf[:n]); got != 7 {
		t.Errorf("txid = %d, want 7", got)
	}
	if !bytes.HasSuffix(buf[:n], []byte{10, 42, 0, 1}) {
		t.Errorf("answer does not end with portal ip: % x", buf[:n])
	}
}

func TestDNSServerPollWithNoTraffic(t *testing.T) {
	srv, err := NewDNSServer("127.0.0.1:0", "10.42.0.1", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	// Must return promptly with nothing pending.
	done := make(chan struct{})
	go func() {
		srv.Poll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Poll blocked with no traffic")
	}
}
