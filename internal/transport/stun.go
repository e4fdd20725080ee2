package transport

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

const (
	stunMsgTypeBindingRequest  = 0x0001
	stunMsgTypeBindingResponse = 0x0101
	stunMsgTypeBindingError    = 0x0111

	stunAttrMappedAddress    = 0x0001
	stunAttrXORMappedAddress = 0x0020

	stunMagicCookie = 0x2112A442
)

// DefaultSTUNServers is used when a caller doesn't supply its own list.
var DefaultSTUNServers = []string{
	"stun.l.google.com:19302",
	"stun1.l.google.com:19302",
	"stun2.l.google.com:19302",
	"stun.cloudflare.com:3478",
}

// PublicAddress is a host's externally visible IP and port, as seen by
// a STUN server across whatever NAT sits in front of it. The host
// command prints it as a port-forwarding hint; it is not included in
// what the host advertises.
type PublicAddress struct {
	IP        string
	Port      int
	LocalIP   string
	LocalPort int
}

// STUNClient discovers a host's public address by querying a public
// STUN server over UDP.
type STUNClient struct {
	servers []string
	timeout time.Duration
}

// NewSTUNClient builds a client that tries servers in order, falling
// back to DefaultSTUNServers if none are given.
func NewSTUNClient(servers []string) *STUNClient {
	if len(servers) == 0 {
		servers = DefaultSTUNServers
	}
	return &STUNClient{servers: servers, timeout: 5 * time.Second}
}

// PublicAddress queries STUN servers in order until one responds.
func (c *STUNClient) PublicAddress(ctx context.Context) (*PublicAddress, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("transport: stun: open udp socket: %w", err)
	}
	defer conn.Close()

	local := conn.LocalAddr().(*net.UDPAddr)

	var lastErr error
	for _, server := range c.servers {
		result, err := c.query(ctx, conn, server)
		if err != nil {
			lastErr = err
			continue
		}
		result.LocalIP = local.IP.String()
		result.LocalPort = local.Port
		return result, nil
	}

	return nil, fmt.Errorf("transport: stun: all servers failed: %w", lastErr)
}

func (c *STUNClient) query(ctx context.Context, conn *net.UDPConn, server string) (*PublicAddress, error) {
	serverAddr, err := net.ResolveUDPAddr("udp4", server)
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	conn.SetDeadline(deadline)

	request, err := bindingRequest()
	if err != nil {
		return nil, err
	}
	if _, err := conn.WriteToUDP(request, serverAddr); err != nil {
		return nil, err
	}

	response := make([]byte, 1024)
	n, _, err := conn.ReadFromUDP(response)
	if err != nil {
		return nil, err
	}
	return parseBindingResponse(response[:n])
}

func bindingRequest() ([]byte, error) {
	request := make([]byte, 20)
	binary.BigEndian.PutUint16(request[0:2], stunMsgTypeBindingRequest)
	binary.BigEndian.PutUint16(request[2:4], 0)
	binary.BigEndian.PutUint32(request[4:8], stunMagicCookie)
	if _, err := rand.Read(request[8:20]); err != nil {
		return nil, fmt.Errorf("transport: stun: transaction id: %w", err)
	}
	return request, nil
}

func parseBindingResponse(data []byte) (*PublicAddress, error) {
	if len(data) < 20 {
		return nil, errors.New("transport: stun: response too short")
	}

	msgType := binary.BigEndian.Uint16(data[0:2])
	if msgType != stunMsgTypeBindingResponse {
		if msgType == stunMsgTypeBindingError {
			return nil, errors.New("transport: stun: binding error")
		}
		return nil, errors.New("transport: stun: unexpected response type")
	}

	if binary.BigEndian.Uint32(data[4:8]) != stunMagicCookie {
		return nil, errors.New("transport: stun: invalid magic cookie")
	}

	msgLen := int(binary.BigEndian.Uint16(data[2:4]))
	if msgLen+20 > len(data) {
		return nil, errors.New("transport: stun: invalid message length")
	}

	offset := 20
	for offset < 20+msgLen {
		if offset+4 > len(data) {
			break
		}
		attrType := binary.BigEndian.Uint16(data[offset : offset+2])
		attrLen := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		offset += 4
		if offset+attrLen > len(data) {
			break
		}
		attrData := data[offset : offset+attrLen]

		switch attrType {
		case stunAttrXORMappedAddress:
			return parseXORMappedAddress(attrData)
		case stunAttrMappedAddress:
			return parseMappedAddress(attrData)
		}

		offset += attrLen
		if attrLen%4 != 0 {
			offset += 4 - attrLen%4
		}
	}

	return nil, errors.New("transport: stun: no mapped address in response")
}

func parseXORMappedAddress(data []byte) (*PublicAddress, error) {
	if len(data) < 8 {
		return nil, errors.New("transport: stun: invalid xor-mapped-address")
	}
	family := data[1]
	port := binary.BigEndian.Uint16(data[2:4]) ^ uint16(stunMagicCookie>>16)

	if family != 0x01 {
		return nil, errors.New("transport: stun: unsupported address family")
	}

	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], stunMagicCookie)
	ip := make([]byte, 4)
	for i := 0; i < 4; i++ {
		ip[i] = data[4+i] ^ magic[i]
	}
	return &PublicAddress{IP: net.IP(ip).String(), Port: int(port)}, nil
}

func parseMappedAddress(data []byte) (*PublicAddress, error) {
	if len(data) < 8 {
		return nil, errors.New("transport: stun: invalid mapped-address")
	}
	family := data[1]
	port := binary.BigEndian.Uint16(data[2:4])

	if family != 0x01 {
		return nil, errors.New("transport: stun: unsupported address family")
	}
	return &PublicAddress{IP: net.IP(data[4:8]).String(), Port: int(port)}, nil
}
