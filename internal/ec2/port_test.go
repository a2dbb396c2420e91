package ec2

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortValidate(t *testing.T) {
	tests := []struct {
		name  string
		port  Port
		valid bool
	}{
		{"tcp single", TCP(2049), true},
		{"udp range", UDPRange(20001, 20003), true},
		{"zero", TCP(0), true},
		{"max", UDP(65535), true},
		{"negative", TCP(-1), false},
		{"too large", UDP(65536), false},
		{"reversed range", TCPRange(20003, 20001), false},
		{"unknown protocol", Port{Protocol: "icmp", From: 1, To: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.port.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPort)
			}
		})
	}
}

func TestPortString(t *testing.T) {
	tests := []struct {
		port     Port
		expected string
	}{
		{TCP(111), "tcp 111"},
		{UDP(2049), "udp 2049"},
		{TCPRange(20001, 20003), "tcp 20001-20003"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.port.String())
		})
	}
}
