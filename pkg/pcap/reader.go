package pcap

import (
	"ICSFlowGen/internal/model"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Packet is the decoded view of one synthesized frame.
type Packet struct {
	Timestamp time.Time
	SrcMAC    string
	DstMAC    string
	SrcIP     string
	DstIP     string
	Transport layers.IPProtocol
	SrcPort   uint16
	DstPort   uint16
	Payload   []byte
}

// Record rebuilds the flow line the frame carries. Protocol and direction are
// not recoverable from the frame and stay empty.
func (p *Packet) Record() model.FlowRecord {
	return model.FlowRecord{
		SrcIP:     p.SrcIP,
		DstIP:     p.DstIP,
		Message:   string(p.Payload),
		Timestamp: p.Timestamp,
		Sequence:  model.SequenceMarker,
		SrcMAC:    p.SrcMAC,
		DstMAC:    p.DstMAC,
	}
}

// ParsePacket uses gopacket to decode an Ethernet/IPv4 frame.
func ParsePacket(data []byte, ci gopacket.CaptureInfo) (*Packet, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	eth, ok := packet.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	if !ok {
		return nil, fmt.Errorf("not an Ethernet frame")
	}
	ip, ok := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	if !ok {
		return nil, fmt.Errorf("not an IPv4 packet")
	}

	p := &Packet{
		Timestamp: ci.Timestamp,
		SrcMAC:    hex.EncodeToString(eth.SrcMAC),
		DstMAC:    hex.EncodeToString(eth.DstMAC),
		SrcIP:     ip.SrcIP.String(),
		DstIP:     ip.DstIP.String(),
		Transport: ip.Protocol,
	}

	if tcp, ok := packet.Layer(layers.LayerTypeTCP).(*layers.TCP); ok {
		p.SrcPort, p.DstPort = uint16(tcp.SrcPort), uint16(tcp.DstPort)
	} else if udp, ok := packet.Layer(layers.LayerTypeUDP).(*layers.UDP); ok {
		p.SrcPort, p.DstPort = uint16(udp.SrcPort), uint16(udp.DstPort)
	}
	if app := packet.ApplicationLayer(); app != nil {
		p.Payload = app.Payload()
	}
	return p, nil
}

// Reader reads packets from a pcap file.
type Reader struct {
	file *os.File
	r    *pcapgo.Reader
}

// NewReader opens the capture and checks its link type.
func NewReader(filePath string) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	r, err := pcapgo.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read pcap header: %w", err)
	}
	if r.LinkType() != layers.LinkTypeEthernet {
		file.Close()
		return nil, fmt.Errorf("unsupported link type %s", r.LinkType())
	}
	return &Reader{file: file, r: r}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() {
	r.file.Close()
}

// ReadPackets sends every parsed packet to out and closes it when the file is
// exhausted. Frames that do not parse are logged and skipped.
func (r *Reader) ReadPackets(out chan<- *Packet) error {
	defer close(out)
	for {
		data, ci, err := r.r.ReadPacketData()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read packet: %w", err)
		}
		p, err := ParsePacket(data, ci)
		if err != nil {
			log.Printf("Error parsing packet: %v", err)
			continue
		}
		out <- p
	}
}

// ReadAll returns every parsed packet of the capture.
func (r *Reader) ReadAll() ([]*Packet, error) {
	ch := make(chan *Packet, 64)
	errCh := make(chan error, 1)
	go func() { errCh <- r.ReadPackets(ch) }()

	var packets []*Packet
	for p := range ch {
		packets = append(packets, p)
	}
	return packets, <-errCh
}
