package imgport

import (
	"fmt"

	"github.com/gogpu/imgport/cache"
)

// ImagePort is the capability every image inport exposes to the outports it
// connects to. *Inport and *MultiInport implement it.
type ImagePort interface {
	// Identifier names the port in logs and diagnostics.
	Identifier() string

	// RequestedDimensions returns the size this port last requested from
	// out, falling back to its default size, then to the zero Size.
	RequestedDimensions(out *Outport) Size

	// IsOutportDeterminingSize reports whether the port reads the outport's
	// image verbatim instead of a view at its own requested size.
	IsOutportDeterminingSize() bool

	// SetOutportDeterminesSize switches the read policy. It does not
	// renegotiate; the next read uses the new policy.
	SetOutportDeterminesSize(bool)
}

// outportDetacher is implemented by inports so that Outport.DisconnectFrom
// can drop the inport's side of the connection too.
type outportDetacher interface {
	detachOutport(out *Outport)
}

// SizingAuthority decides whose size an outport's readers see.
type SizingAuthority uint8

const (
	// ProducerOwnsSize: the canonical image size is the producer's; each
	// reader gets a view resampled to its own requested size.
	ProducerOwnsSize SizingAuthority = iota

	// ConsumerOwnsSize: readers dictate the canonical size through resize
	// requests and read the canonical image verbatim.
	ConsumerOwnsSize
)

// String returns a string representation of the sizing authority.
func (a SizingAuthority) String() string {
	switch a {
	case ProducerOwnsSize:
		return "ProducerOwnsSize"
	case ConsumerOwnsSize:
		return "ConsumerOwnsSize"
	default:
		return fmt.Sprintf("SizingAuthority(%d)", uint8(a))
	}
}

// ParseSizingAuthority accepts the String forms and the short names
// "producer" and "consumer".
func ParseSizingAuthority(s string) (SizingAuthority, error) {
	switch s {
	case "", "producer", "ProducerOwnsSize":
		return ProducerOwnsSize, nil
	case "consumer", "ConsumerOwnsSize":
		return ConsumerOwnsSize, nil
	default:
		return 0, fmt.Errorf("imgport: unknown sizing authority %q", s)
	}
}

// SourceImage pairs an image with the outport it came from.
type SourceImage struct {
	Outport *Outport
	Image   *Image
}

// PortInfo is a diagnostic snapshot of a port.
type PortInfo struct {
	Identifier  string
	Kind        string // "inport", "multi.inport" or "outport"
	Connections int
	// MaxConnections is 0 for unbounded inports and for outports.
	MaxConnections int

	// Inport fields.
	OutportDeterminesSize bool
	DefaultSize           *Size
	Requested             map[string]Size // keyed by outport identifier

	// Outport fields.
	HasData            bool
	Editable           bool
	Dimensions         Size
	HandleResizeEvents bool
	SizingAuthority    SizingAuthority
	Cache              cache.Stats
}
