package writer

import (
	"ICSFlowGen/internal/model"
	"encoding/hex"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// service is the transport a protocol rides on in the synthesized capture.
type service struct {
	transport layers.IPProtocol
	port      uint16
}

var services = map[string]service{
	"modbus":     {layers.IPProtocolTCP, 502},
	"iec104":     {layers.IPProtocolTCP, 2404},
	"dnp3":       {layers.IPProtocolTCP, 20000},
	"s7":         {layers.IPProtocolTCP, 102},
	"mms":        {layers.IPProtocolTCP, 102},
	"opcda":      {layers.IPProtocolTCP, 135},
	"profinetio": {layers.IPProtocolUDP, 34964},
	"ftp":        {layers.IPProtocolTCP, 21},
	"udp":        {layers.IPProtocolUDP, 10001},
	"icmp":       {layers.IPProtocolICMPv4, 0},
}

var defaultService = service{layers.IPProtocolTCP, 10000}

func serviceFor(protocol string) service {
	if s, ok := services[protocol]; ok {
		return s
	}
	return defaultService
}

// ephemeralPort derives a stable client port from the client address.
func ephemeralPort(ip net.IP) uint16 {
	return 49152 + (uint16(ip[2])<<8|uint16(ip[3]))%16384
}

// PcapWriter renders every flow record as one Ethernet frame in a pcap file.
type PcapWriter struct {
	path    string
	file    *os.File
	w       *pcapgo.Writer
	snapLen uint32
	buf     gopacket.SerializeBuffer
	total   int
}

// NewPcapWriter creates the capture file and writes its header. A zero snapLen
// keeps whole frames.
func NewPcapWriter(path string, snapLen uint32) (*PcapWriter, error) {
	if snapLen == 0 {
		snapLen = 65536
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create pcap file '%s': %w", path, err)
	}

	w := pcapgo.NewWriter(file)
	if err := w.WriteFileHeader(snapLen, layers.LinkTypeEthernet); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write pcap header: %w", err)
	}

	return &PcapWriter{
		path:    path,
		file:    file,
		w:       w,
		snapLen: snapLen,
		buf:     gopacket.NewSerializeBuffer(),
	}, nil
}

func (w *PcapWriter) Write(batch []model.FlowRecord) error {
	for _, rec := range batch {
		data, err := encodeFrame(w.buf, rec)
		if err != nil {
			return err
		}
		ci := gopacket.CaptureInfo{
			Timestamp:     rec.Timestamp,
			CaptureLength: len(data),
			Length:        len(data),
		}
		if uint32(len(data)) > w.snapLen {
			data = data[:w.snapLen]
			ci.CaptureLength = len(data)
		}
		if err := w.w.WritePacket(ci, data); err != nil {
			return fmt.Errorf("failed to write packet: %w", err)
		}
	}
	w.total += len(batch)
	return nil
}

func (w *PcapWriter) Close() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	log.Printf("Successfully wrote %d packets to %s", w.total, w.path)
	return nil
}

// encodeFrame serializes rec into buf. The returned slice is only valid until
// the next call.
func encodeFrame(buf gopacket.SerializeBuffer, rec model.FlowRecord) ([]byte, error) {
	srcMAC, err := parseMAC(rec.SrcMAC)
	if err != nil {
		return nil, err
	}
	dstMAC, err := parseMAC(rec.DstMAC)
	if err != nil {
		return nil, err
	}
	srcIP := net.ParseIP(rec.SrcIP).To4()
	dstIP := net.ParseIP(rec.DstIP).To4()
	if srcIP == nil || dstIP == nil {
		return nil, fmt.Errorf("invalid IPv4 pair %q -> %q", rec.SrcIP, rec.DstIP)
	}

	svc := serviceFor(rec.Protocol)
	eth := &layers.Ethernet{
		SrcMAC:       srcMAC,
		DstMAC:       dstMAC,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: svc.transport,
		SrcIP:    srcIP,
		DstIP:    dstIP,
	}

	// Requests travel client -> service port, responses come back.
	client := srcIP
	if rec.Direction == model.Response {
		client = dstIP
	}
	srcPort, dstPort := ephemeralPort(client), svc.port
	if rec.Direction == model.Response {
		srcPort, dstPort = dstPort, srcPort
	}

	var transport gopacket.SerializableLayer
	switch svc.transport {
	case layers.IPProtocolTCP:
		tcp := &layers.TCP{
			SrcPort: layers.TCPPort(srcPort),
			DstPort: layers.TCPPort(dstPort),
			Seq:     uint32(rec.Sequence),
			PSH:     true,
			ACK:     true,
			Window:  64240,
		}
		tcp.SetNetworkLayerForChecksum(ip)
		transport = tcp
	case layers.IPProtocolUDP:
		udp := &layers.UDP{
			SrcPort: layers.UDPPort(srcPort),
			DstPort: layers.UDPPort(dstPort),
		}
		udp.SetNetworkLayerForChecksum(ip)
		transport = udp
	default:
		typ := uint8(layers.ICMPv4TypeEchoRequest)
		if rec.Direction == model.Response {
			typ = layers.ICMPv4TypeEchoReply
		}
		transport = &layers.ICMPv4{
			TypeCode: layers.CreateICMPv4TypeCode(typ, 0),
			Id:       ephemeralPort(client),
			Seq:      uint16(rec.Sequence),
		}
	}

	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, transport, gopacket.Payload(rec.Message)); err != nil {
		return nil, fmt.Errorf("failed to serialize frame: %w", err)
	}
	return buf.Bytes(), nil
}

func parseMAC(s string) (net.HardwareAddr, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 6 {
		return nil, fmt.Errorf("invalid MAC address %q", s)
	}
	return net.HardwareAddr(b), nil
}
