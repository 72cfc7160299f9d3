package topology

import (
	"fmt"
	"math"
	"sort"
	"time"

	"ICSFlowGen/internal/model"
)

// Sampler draws message templates for a protocol.
type Sampler interface {
	Sample(protocol string, rng model.Rand) (string, error)
	Has(protocol string) bool
}

// Connection is a traffic-generation rule between two zones of devices.
type Connection struct {
	zoneA     []*model.Device
	zoneB     []*model.Device
	weights   map[string]float64
	frequency float64

	// protocols is sorted so seeded draws do not depend on map iteration order.
	protocols  []string
	cumulative []float64
}

// NewConnection validates its inputs and precomputes the protocol distribution.
func NewConnection(zoneA, zoneB []*model.Device, weights map[string]float64, frequency float64) (*Connection, error) {
	if len(zoneA) == 0 {
		return nil, fmt.Errorf("zone A: %w", ErrEmptyZone)
	}
	if len(zoneB) == 0 {
		return nil, fmt.Errorf("zone B: %w", ErrEmptyZone)
	}
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return nil, fmt.Errorf("%w, got %v", ErrInvalidFrequency, frequency)
	}
	// The minimum gap must fit in a time.Duration.
	if float64(time.Second)/frequency >= math.MaxInt64 {
		return nil, fmt.Errorf("%w, %v events/s is below the lowest representable rate", ErrInvalidFrequency, frequency)
	}

	protocols, cumulative, err := normalize(weights)
	if err != nil {
		return nil, err
	}

	c := &Connection{
		zoneA:      append([]*model.Device(nil), zoneA...),
		zoneB:      append([]*model.Device(nil), zoneB...),
		weights:    make(map[string]float64, len(weights)),
		frequency:  frequency,
		protocols:  protocols,
		cumulative: cumulative,
	}
	for k, v := range weights {
		c.weights[k] = v
	}
	return c, nil
}

// normalize turns weights into a cumulative distribution over sorted protocol names.
func normalize(weights map[string]float64) ([]string, []float64, error) {
	if len(weights) == 0 {
		return nil, nil, fmt.Errorf("%w: no protocols", ErrInvalidWeights)
	}

	protocols := make([]string, 0, len(weights))
	sum := 0.0
	for protocol, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, nil, fmt.Errorf("%w: protocol '%s' has weight %v", ErrInvalidWeights, protocol, w)
		}
		sum += w
		protocols = append(protocols, protocol)
	}
	if sum == 0 {
		return nil, nil, fmt.Errorf("%w: weights sum to zero", ErrInvalidWeights)
	}
	sort.Strings(protocols)

	cumulative := make([]float64, len(protocols))
	acc := 0.0
	for i, protocol := range protocols {
		acc += weights[protocol] / sum
		cumulative[i] = acc
	}
	cumulative[len(cumulative)-1] = 1
	return protocols, cumulative, nil
}

// SelectProtocol draws one protocol according to the normalized weights.
func (c *Connection) SelectProtocol(rng model.Rand) string {
	r := rng.Float64()
	for i, bound := range c.cumulative {
		if r < bound {
			return c.protocols[i]
		}
	}
	return c.protocols[len(c.protocols)-1]
}

// SelectEndpoints draws one device from each zone, A first.
func (c *Connection) SelectEndpoints(rng model.Rand) (*model.Device, *model.Device) {
	a := c.zoneA[rng.Intn(len(c.zoneA))]
	b := c.zoneB[rng.Intn(len(c.zoneB))]
	return a, b
}

// Fire produces the forward and reverse records of one communication event.
func (c *Connection) Fire(ts time.Time, store Sampler, rng model.Rand) ([2]model.FlowRecord, error) {
	protocol := c.SelectProtocol(rng)
	a, b := c.SelectEndpoints(rng)
	msg, err := store.Sample(protocol, rng)
	if err != nil {
		return [2]model.FlowRecord{}, err
	}

	forward := model.FlowRecord{
		SrcIP:     a.IP,
		DstIP:     b.IP,
		Message:   msg,
		Timestamp: ts,
		Sequence:  model.SequenceMarker,
		SrcMAC:    a.MAC,
		DstMAC:    b.MAC,
		Protocol:  protocol,
		Direction: model.Request,
	}
	reverse := forward
	reverse.SrcIP, reverse.DstIP = b.IP, a.IP
	reverse.SrcMAC, reverse.DstMAC = b.MAC, a.MAC
	reverse.Direction = model.Response

	return [2]model.FlowRecord{forward, reverse}, nil
}

// MinGap is the shortest simulated time allowed between two fires.
func (c *Connection) MinGap() time.Duration {
	return time.Duration(float64(time.Second) / c.frequency)
}

func (c *Connection) ZoneA() []*model.Device {
	return append([]*model.Device(nil), c.zoneA...)
}

func (c *Connection) ZoneB() []*model.Device {
	return append([]*model.Device(nil), c.zoneB...)
}

// Weights returns a copy of the protocol weights as configured, before normalization.
func (c *Connection) Weights() map[string]float64 {
	out := make(map[string]float64, len(c.weights))
	for k, v := range c.weights {
		out[k] = v
	}
	return out
}

// Protocols returns the protocol names in selection order.
func (c *Connection) Protocols() []string {
	return append([]string(nil), c.protocols...)
}

func (c *Connection) Frequency() float64 {
	return c.frequency
}
