package imgport

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// inportBase implements everything Inport and MultiInport share: the
// requested-size table, the connection list and the read path.
type inportBase struct {
	self           ImagePort
	identifier     string
	kind           string
	maxConnections int // 0 means unbounded

	mu                    sync.RWMutex
	outportDeterminesSize bool
	defaultSize           *Size
	requested             map[*Outport]Size
	connected             []*Outport
}

func (b *inportBase) setup(self ImagePort, identifier, kind string, maxConnections int, opts []InportOption) {
	var o inportOptions
	for _, opt := range opts {
		opt(&o)
	}
	b.self = self
	b.identifier = identifier
	b.kind = kind
	b.maxConnections = maxConnections
	b.outportDeterminesSize = o.outportDeterminesSize
	b.defaultSize = o.defaultSize
	b.requested = make(map[*Outport]Size)
}

// Identifier returns the port identifier.
func (b *inportBase) Identifier() string { return b.identifier }

// MaxConnections returns the connection limit, 0 meaning unbounded.
func (b *inportBase) MaxConnections() int { return b.maxConnections }

// ConnectTo connects the port to out. The size recorded for out (or the
// default size) is sent to out as a resize request before the connection
// is reported established. Fails with ErrCapacityExceeded when the port is
// full and with ErrAlreadyConnected for a duplicate; nothing changes then.
func (b *inportBase) ConnectTo(out *Outport) error {
	if out == nil {
		return ErrNilOutport
	}

	b.mu.Lock()
	if slices.Contains(b.connected, out) {
		b.mu.Unlock()
		return fmt.Errorf("%w: %q -> %q", ErrAlreadyConnected, out.Identifier(), b.identifier)
	}
	if b.maxConnections > 0 && len(b.connected) >= b.maxConnections {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s %q accepts %d", ErrCapacityExceeded, b.kind, b.identifier, b.maxConnections)
	}
	size := b.requestedLocked(out)
	if !size.IsZero() {
		b.requested[out] = size
	}
	b.connected = append(b.connected, out)
	b.mu.Unlock()

	Logger().Debug("imgport: connecting", "inport", b.identifier, "outport", out.Identifier(), "size", size)
	out.connect(b.self, NewResizeEvent(size))
	return nil
}

// DisconnectFrom removes the connection to out and forgets the size
// requested from it.
func (b *inportBase) DisconnectFrom(out *Outport) {
	if out == nil {
		return
	}
	b.detachOutport(out)
	out.release(b.self)
}

func (b *inportBase) detachOutport(out *Outport) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.requested, out)
	if i := slices.Index(b.connected, out); i >= 0 {
		b.connected = slices.Delete(b.connected, i, i+1)
	}
}

// PropagateEvent records and forwards an event.
//
// For a ResizeEvent with a target, the size is recorded for target and the
// event is forwarded to it if connected. A size recorded for an outport that
// is not connected is kept and sent when the port connects to it; it is
// dropped by DisconnectFrom, whether or not a connection was ever made.
// Without a target the size is
// recorded for every connected outport and as the default size, and the
// event is forwarded to every connected outport.
func (b *inportBase) PropagateEvent(ev Event, target *Outport) {
	switch e := ev.(type) {
	case *ResizeEvent:
		b.propagateResize(e, target)
	}
}

// PropagateResizeEvent broadcasts e to every connected outport.
func (b *inportBase) PropagateResizeEvent(e *ResizeEvent) {
	b.PropagateEvent(e, nil)
}

func (b *inportBase) propagateResize(e *ResizeEvent, target *Outport) {
	if e.HasVisited(b.self) {
		return
	}
	e.MarkVisited(b.self)

	size := e.Size()
	var targets []*Outport

	b.mu.Lock()
	if target != nil {
		b.requested[target] = size
		if slices.Contains(b.connected, target) {
			targets = []*Outport{target}
		}
	} else {
		for _, out := range b.connected {
			b.requested[out] = size
		}
		b.defaultSize = &size
		targets = slices.Clone(b.connected)
	}
	b.mu.Unlock()

	for _, out := range targets {
		out.PropagateEvent(e, b.self)
	}
}

// RequestedDimensions returns the size recorded for out, falling back to the
// default size, then to the zero Size.
func (b *inportBase) RequestedDimensions(out *Outport) Size {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.requestedLocked(out)
}

func (b *inportBase) requestedLocked(out *Outport) Size {
	if s, ok := b.requested[out]; ok {
		return s
	}
	if b.defaultSize != nil {
		return *b.defaultSize
	}
	return Size{}
}

// SetDefaultSize sets the size requested from outports without a recorded
// request. It does not renegotiate.
func (b *inportBase) SetDefaultSize(s Size) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.defaultSize = &s
}

// DefaultSize returns the default size, if one is set.
func (b *inportBase) DefaultSize() (Size, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.defaultSize == nil {
		return Size{}, false
	}
	return *b.defaultSize, true
}

// IsOutportDeterminingSize reports whether the port reads outport images
// verbatim.
func (b *inportBase) IsOutportDeterminingSize() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.outportDeterminesSize
}

// SetOutportDeterminesSize switches between reading outport images verbatim
// (true) and reading views at the requested size (false). It does not
// renegotiate; the next read uses the new policy.
func (b *inportBase) SetOutportDeterminesSize(yes bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outportDeterminesSize = yes
}

// IsConnected reports whether any outport is connected.
func (b *inportBase) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.connected) > 0
}

// NumConnections returns the number of connected outports.
func (b *inportBase) NumConnections() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.connected)
}

// ConnectedOutports returns the connected outports in connection order.
func (b *inportBase) ConnectedOutports() []*Outport {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return slices.Clone(b.connected)
}

// VectorData returns the image read from every connected outport that has
// one, in connection order. Outports whose read fails are skipped and their
// errors joined into the returned error.
func (b *inportBase) VectorData() ([]*Image, error) {
	sources, err := b.SourceVectorData()
	images := make([]*Image, len(sources))
	for i, s := range sources {
		images[i] = s.Image
	}
	return images, err
}

// SourceVectorData is VectorData with each image paired with its outport.
func (b *inportBase) SourceVectorData() ([]SourceImage, error) {
	var (
		res  []SourceImage
		errs []error
	)
	for _, out := range b.ConnectedOutports() {
		img, err := out.DataForPort(b.self)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if img != nil {
			res = append(res, SourceImage{Outport: out, Image: img})
		}
	}
	return res, errors.Join(errs...)
}

// firstData reads from the first connected outport; nil, nil if none.
func (b *inportBase) firstData() (*Image, error) {
	b.mu.RLock()
	var out *Outport
	if len(b.connected) > 0 {
		out = b.connected[0]
	}
	b.mu.RUnlock()

	if out == nil {
		return nil, nil
	}
	return out.DataForPort(b.self)
}

// PassOnDataToOutport copies the image this port reads into other's owned
// image in place, resampling to other's size if needed, and invalidates
// other's cached views. Does nothing if the port has no data; fails with
// ErrNotEditable if other does not own its data.
func (b *inportBase) PassOnDataToOutport(other *Outport) error {
	img, err := b.firstData()
	if err != nil || img == nil {
		return err
	}
	dst, err := other.EditableData()
	if err != nil {
		return err
	}
	if err := img.CopyRepresentationsTo(dst, other.Resampler()); err != nil {
		return fmt.Errorf("%s %q -> outport %q: %w", b.kind, b.identifier, other.Identifier(), err)
	}
	other.Invalidate()
	return nil
}

// Info returns a diagnostic snapshot.
func (b *inportBase) Info() PortInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info := PortInfo{
		Identifier:            b.identifier,
		Kind:                  b.kind,
		Connections:           len(b.connected),
		MaxConnections:        b.maxConnections,
		OutportDeterminesSize: b.outportDeterminesSize,
		Requested:             make(map[string]Size, len(b.requested)),
	}
	if b.defaultSize != nil {
		s := *b.defaultSize
		info.DefaultSize = &s
	}
	for out, s := range b.requested {
		info.Requested[out.Identifier()] = s
	}
	return info
}

// Inport is an image inport accepting exactly one connection.
type Inport struct {
	inportBase
}

var _ ImagePort = (*Inport)(nil)

// NewInport creates a single-connection image inport.
func NewInport(identifier string, opts ...InportOption) *Inport {
	p := &Inport{}
	p.setup(p, identifier, "inport", 1, opts)
	return p
}

// Data returns the image read from the connected outport: the outport's
// image itself, or a view at this port's requested size (see
// Outport.DataForPort). Returns nil, nil when unconnected or when the
// outport has no data.
func (p *Inport) Data() (*Image, error) {
	return p.firstData()
}

// HasData reports whether the port is connected to an outport with data.
func (p *Inport) HasData() bool {
	outs := p.ConnectedOutports()
	if len(outs) == 0 {
		return false
	}
	for _, out := range outs {
		if !out.HasData() {
			return false
		}
	}
	return true
}

// MultiInport is an image inport accepting any number of connections
// (or at most WithMaxConnections). Requested sizes are tracked per outport.
type MultiInport struct {
	inportBase
}

var _ ImagePort = (*MultiInport)(nil)

// NewMultiInport creates a fan-in image inport.
func NewMultiInport(identifier string, opts ...InportOption) *MultiInport {
	var o inportOptions
	for _, opt := range opts {
		opt(&o)
	}
	p := &MultiInport{}
	p.setup(p, identifier, "multi.inport", o.maxConnections, opts)
	return p
}

// Data returns the image read from the first connected outport. Use
// VectorData or SourceVectorData to read all of them.
func (p *MultiInport) Data() (*Image, error) {
	return p.firstData()
}

// HasData reports whether any connected outport has data.
func (p *MultiInport) HasData() bool {
	return slices.ContainsFunc(p.ConnectedOutports(), (*Outport).HasData)
}
