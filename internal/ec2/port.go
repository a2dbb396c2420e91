package ec2

import (
	"errors"
	"fmt"
	"slices"

	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

var ErrInvalidPort = errors.New("invalid port")

const maxPort = 65535

// Port is a protocol plus a port or inclusive port range.
type Port struct {
	Protocol ec2types.Protocol
	From     int
	To       int
}

// TCP allows a single TCP port.
func TCP(port int) Port {
	return Port{Protocol: ec2types.ProtocolTcp, From: port, To: port}
}

// TCPRange allows an inclusive TCP port range.
func TCPRange(from, to int) Port {
	return Port{Protocol: ec2types.ProtocolTcp, From: from, To: to}
}

// UDP allows a single UDP port.
func UDP(port int) Port {
	return Port{Protocol: ec2types.ProtocolUdp, From: port, To: port}
}

// UDPRange allows an inclusive UDP port range.
func UDPRange(from, to int) Port {
	return Port{Protocol: ec2types.ProtocolUdp, From: from, To: to}
}

// Validate checks the protocol against the EC2 API enum and the ports
// against the valid range.
func (p Port) Validate() error {
	if !slices.Contains(p.Protocol.Values(), p.Protocol) {
		return fmt.Errorf("%w: unknown protocol %q", ErrInvalidPort, p.Protocol)
	}
	if p.From < 0 || p.From > maxPort {
		return fmt.Errorf("%w: %d is outside 0-%d", ErrInvalidPort, p.From, maxPort)
	}
	if p.To < 0 || p.To > maxPort {
		return fmt.Errorf("%w: %d is outside 0-%d", ErrInvalidPort, p.To, maxPort)
	}
	if p.From > p.To {
		return fmt.Errorf("%w: range %d-%d is reversed", ErrInvalidPort, p.From, p.To)
	}
	return nil
}

// String returns a human-readable form such as "tcp 2049" or
// "udp 20001-20003".
func (p Port) String() string {
	if p.From == p.To {
		return fmt.Sprintf("%s %d", p.Protocol, p.From)
	}
	return fmt.Sprintf("%s %d-%d", p.Protocol, p.From, p.To)
}
