package skeleton

import (
	"fmt"
	"strings"
)

// RotationOrder names the sequence in which the three rotation channels are
// composed. XYZ means R = Rx * Ry * Rz and the channels are listed X, Y, Z.
type RotationOrder string

const (
	OrderXYZ RotationOrder = "XYZ"
	OrderXZY RotationOrder = "XZY"
	OrderYXZ RotationOrder = "YXZ"
	OrderYZX RotationOrder = "YZX"
	OrderZXY RotationOrder = "ZXY"
	OrderZYX RotationOrder = "ZYX"
)

// DefaultRotationOrder is used when a profile leaves the order empty.
const DefaultRotationOrder = OrderXYZ

// ParseOrder parses a rotation order name, case-insensitively.
func ParseOrder(s string) (RotationOrder, error) {
	o := RotationOrder(strings.ToUpper(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", fmt.Errorf("unknown rotation order %q", s)
	}
	return o, nil
}

// Valid reports whether o is one of the six Tait-Bryan orders.
func (o RotationOrder) Valid() bool {
	switch o {
	case OrderXYZ, OrderXZY, OrderYXZ, OrderYZX, OrderZXY, OrderZYX:
		return true
	}
	return false
}

// Channels returns the BVH rotation channel names in order.
func (o RotationOrder) Channels() []string {
	out := make([]string, 0, 3)
	for _, axis := range string(o) {
		out = append(out, string(axis)+"rotation")
	}
	return out
}
