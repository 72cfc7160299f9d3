package addr

import (
	"encoding/hex"
	"fmt"
	"net"

	"ICSFlowGen/internal/model"
)

// baseIP is the address the allocator counts up from; it is never handed out itself.
var baseIP = [4]byte{192, 168, 0, 0}

// MaxAddresses is how many addresses fit before the first octet would have to change.
const MaxAddresses = 1<<24 - 1 - 168<<16

// GenerateAddresses returns count distinct IPv4 addresses following 192.168.0.0,
// incrementing the last octet and carrying into the higher ones.
func GenerateAddresses(count int) ([]string, error) {
	if count < 0 {
		return nil, fmt.Errorf("address count must not be negative, got %d", count)
	}
	if count > MaxAddresses {
		return nil, fmt.Errorf("cannot allocate %d addresses, at most %d fit after %s", count, MaxAddresses, net.IP(baseIP[:]))
	}

	ips := make([]string, 0, count)
	ip := baseIP
	for i := 0; i < count; i++ {
		increment(&ip)
		ips = append(ips, net.IPv4(ip[0], ip[1], ip[2], ip[3]).String())
	}
	return ips, nil
}

// increment adds one to the last three octets, wrapping each to 0 on carry.
func increment(ip *[4]byte) {
	for i := 3; i >= 1; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

// defaultOUI is the QEMU/KVM prefix, used for types without a vendor set.
var defaultOUI = [3]byte{0x52, 0x54, 0x00}

// vendorOUIs lists the vendor prefixes a device of each type may carry.
var vendorOUIs = map[model.DeviceType][][3]byte{
	model.PLC: {
		{0x00, 0x1b, 0x1b}, // Siemens
		{0x00, 0x0e, 0x8c}, // Siemens
		{0x00, 0x00, 0xbc}, // Rockwell Automation
		{0x00, 0x80, 0xf4}, // Schneider Electric
	},
	model.RTU: {
		{0x00, 0x30, 0xa7}, // Schweitzer Engineering
		{0x00, 0x80, 0xf4}, // Schneider Electric
		{0x00, 0x21, 0xc1}, // ABB
	},
	model.HMI: {
		{0x00, 0x0e, 0x8c}, // Siemens
		{0x00, 0x00, 0xbc}, // Rockwell Automation
	},
	model.Workstation: {
		{0x00, 0x14, 0x22}, // Dell
		{0x3c, 0xd9, 0x2b}, // HP
		{0x00, 0x1c, 0x42}, // Parallels
	},
	model.Server: {
		{0x00, 0x50, 0x56}, // VMware
		{0x00, 0x14, 0x22}, // Dell
	},
	model.Historian: {
		{0x00, 0x50, 0x56}, // VMware
		{0x3c, 0xd9, 0x2b}, // HP
	},
}

// GenerateMACs returns one MAC per requested type: a vendor prefix for the type
// followed by three random bytes, as 12 lowercase hex characters.
// Uniqueness is not checked.
func GenerateMACs(rng model.Rand, types []model.DeviceType) []string {
	macs := make([]string, 0, len(types))
	for _, t := range types {
		oui := defaultOUI
		if candidates := vendorOUIs[t]; len(candidates) > 0 {
			oui = candidates[rng.Intn(len(candidates))]
		}
		mac := []byte{
			oui[0], oui[1], oui[2],
			byte(rng.Intn(256)), byte(rng.Intn(256)), byte(rng.Intn(256)),
		}
		macs = append(macs, hex.EncodeToString(mac))
	}
	return macs
}
