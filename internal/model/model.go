package model

import (
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the fixed-width, millisecond-precision layout used in flow lines.
const TimestampLayout = "01/02/2006-15:04:05.000"

// SequenceMarker is stamped on every emitted flow record.
const SequenceMarker = 1

// DeviceType tags a simulated endpoint with its role in the plant network.
type DeviceType string

const (
	Workstation DeviceType = "workstation"
	PLC         DeviceType = "plc"
	Server      DeviceType = "server"
	HMI         DeviceType = "hmi"
	RTU         DeviceType = "rtu"
	Historian   DeviceType = "historian"
)

// Device is one simulated network endpoint. Devices are created by a topology
// and never change afterwards.
type Device struct {
	ID   int
	IP   string
	MAC  string
	Type DeviceType
}

// Equal reports whether both devices carry the same id.
func (d *Device) Equal(o *Device) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.ID == o.ID
}

// Direction labels which half of a communication event a record describes.
type Direction string

const (
	Request  Direction = "request"
	Response Direction = "response"
)

// FlowRecord is a single line of the synthetic flow log.
type FlowRecord struct {
	SrcIP     string
	DstIP     string
	Message   string
	Timestamp time.Time
	Sequence  int
	SrcMAC    string
	DstMAC    string

	// Labels for structured writers; not part of the text line.
	Protocol  string
	Direction Direction
}

// String renders the record as "srcIP, dstIP, message, timestamp, sequence, srcMAC, dstMAC".
func (r FlowRecord) String() string {
	return strings.Join([]string{
		r.SrcIP,
		r.DstIP,
		r.Message,
		r.Timestamp.Format(TimestampLayout),
		strconv.Itoa(r.Sequence),
		r.SrcMAC,
		r.DstMAC,
	}, ", ")
}

// Rand is the random source used for every draw in the simulation.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// RunInfo identifies one generation run across all writers.
type RunInfo struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
}
