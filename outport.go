package imgport

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/imgport/cache"
)

// ListenerID identifies a registered resize listener.
type ListenerID uint64

type resizeListener struct {
	id ListenerID
	fn func(*ResizeEvent)
}

// Outport owns the canonical image of a producer and serves it, or resized
// views of it, to any number of inports.
//
// Mutation (SetData, SetDimensions, PropagateEvent, connection changes)
// belongs to the graph evaluation goroutine. Data, DataForPort and
// ResizedImageData may be called from any goroutine: they only hand out
// published, immutable images.
type Outport struct {
	identifier string

	mu                 sync.RWMutex
	image              *Image
	owning             bool
	handleResizeEvents bool
	authority          SizingAuthority
	resampler          Resampler
	requested          map[ImagePort]Size
	inports            []ImagePort
	listeners          []resizeListener
	nextListener       ListenerID

	cache *ResizeCache
}

// NewOutport creates an outport without data.
func NewOutport(identifier string, opts ...OutportOption) *Outport {
	o := defaultOutportOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.resampler == nil {
		o.resampler = DefaultResampler()
	}
	return &Outport{
		identifier:         identifier,
		handleResizeEvents: o.handleResizeEvents,
		authority:          o.authority,
		resampler:          o.resampler,
		requested:          make(map[ImagePort]Size),
		cache:              NewResizeCache(o.cacheLimit),
	}
}

// Identifier returns the port identifier.
func (o *Outport) Identifier() string { return o.identifier }

// SetData publishes img as the canonical image. With owning the outport may
// resize it (SetDimensions, resize events) and hands it out through
// EditableData; without, img is treated as read-only. The resize cache is
// invalidated unconditionally. A nil img clears the port.
func (o *Outport) SetData(img *Image, owning bool) {
	o.mu.Lock()
	prev := o.dimensionsLocked()
	o.image = img
	o.owning = owning && img != nil
	o.cache.SetMaster(img)
	o.cache.InvalidateAll()
	notice, listeners := o.resizeNoticeLocked(prev)
	o.mu.Unlock()

	Logger().Debug("imgport: data set", "outport", o.identifier, "size", dimensionsOf(img), "owning", owning)
	fire(notice, listeners)
}

// Data returns the canonical image, or nil if none has been published.
func (o *Outport) Data() *Image {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.image
}

// DetachData returns the canonical image and leaves the port empty.
func (o *Outport) DetachData() *Image {
	o.mu.Lock()
	img := o.image
	prev := o.dimensionsLocked()
	o.image = nil
	o.owning = false
	o.cache.SetMaster(nil)
	notice, listeners := o.resizeNoticeLocked(prev)
	o.mu.Unlock()

	fire(notice, listeners)
	return img
}

// Clear drops the canonical image and every cached view.
func (o *Outport) Clear() {
	o.DetachData()
}

// HasData reports whether an image has been published.
func (o *Outport) HasData() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.image != nil
}

// HasEditableData reports whether the outport owns a mutable image.
func (o *Outport) HasEditableData() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.image != nil && o.owning
}

// EditableData returns the owned image for in-place edits on the
// evaluation goroutine. Call Invalidate after editing. The pointer is stale
// after SetDimensions or SetData; fetch it again. Returns ErrNotEditable if
// the outport does not own its data.
func (o *Outport) EditableData() (*Image, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if o.image == nil || !o.owning {
		return nil, fmt.Errorf("%w: outport %q", ErrNotEditable, o.identifier)
	}
	return o.image, nil
}

// Dimensions returns the canonical image size, or the zero Size.
func (o *Outport) Dimensions() Size {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.dimensionsLocked()
}

// SetDimensions resizes the owned canonical image to size without
// negotiating with inports. Readers holding the previous image keep it; the
// resize cache is invalidated, also when size is the current size. Fails
// with ErrNotEditable when the outport does not own its data, and with the
// resampler's error if resizing fails; either way everything is left
// unchanged.
func (o *Outport) SetDimensions(size Size) error {
	o.mu.Lock()
	prev := o.dimensionsLocked()
	err := o.setDimensionsLocked(size)
	notice, listeners := o.resizeNoticeLocked(prev)
	o.mu.Unlock()

	if err != nil {
		Logger().Warn("imgport: set dimensions failed", "outport", o.identifier, "size", size, "err", err)
		return err
	}
	fire(notice, listeners)
	return nil
}

// setDimensionsLocked resizes the owned image. Caller must hold o.mu.
// On error the image and cache are left as they were.
func (o *Outport) setDimensionsLocked(size Size) error {
	if o.image == nil || !o.owning {
		return fmt.Errorf("%w: outport %q", ErrNotEditable, o.identifier)
	}
	if !size.IsValid() {
		return fmt.Errorf("%w: outport %q dimensions %s", ErrInvalidSize, o.identifier, size)
	}
	prev := o.image.Size()
	if size == prev {
		// Same size: keep the image, still drop the views derived from it.
		o.cache.InvalidateAll()
		return nil
	}
	resized, err := o.image.Resized(size, o.resampler)
	if err != nil {
		return fmt.Errorf("outport %q: %w", o.identifier, err)
	}
	o.image = resized
	o.cache.SetMaster(resized)

	Logger().Info("imgport: outport resized", "outport", o.identifier, "from", prev, "to", size)
	return nil
}

// PropagateEvent handles an event arriving from source (nil for events not
// tied to a connection).
//
// For a ResizeEvent the request is recorded for source if it is connected;
// a zero size withdraws source's request.
// When resize handling is enabled and the outport owns its image, the image
// is resized to the componentwise maximum of the event size and every
// connected inport's request, and resize listeners are notified. The event
// is marked used either way.
func (o *Outport) PropagateEvent(ev Event, source ImagePort) {
	switch e := ev.(type) {
	case *ResizeEvent:
		o.handleResize(e, source)
	}
}

func (o *Outport) handleResize(e *ResizeEvent, source ImagePort) {
	if e.HasVisited(o) {
		return
	}
	e.MarkVisited(o)

	o.mu.Lock()
	if source != nil && slices.Contains(o.inports, source) {
		if e.Size().IsZero() {
			delete(o.requested, source)
		} else {
			o.requested[source] = e.Size()
		}
		Logger().Debug("imgport: resize request recorded",
			"outport", o.identifier, "inport", source.Identifier(), "size", e.Size())
	}

	prev := o.dimensionsLocked()
	if o.handleResizeEvents {
		target := e.Size()
		for _, s := range o.requested {
			target = target.Max(s)
		}
		switch {
		case o.image == nil:
		case !o.owning:
			Logger().Debug("imgport: resize request ignored, data not owned", "outport", o.identifier)
		case target.IsValid() && target != prev:
			if err := o.setDimensionsLocked(target); err != nil {
				Logger().Warn("imgport: resize to requested size failed",
					"outport", o.identifier, "size", target, "err", err)
			}
		}
	}
	notice, listeners := o.resizeNoticeLocked(prev)
	o.mu.Unlock()

	e.MarkAsUsed()
	fire(notice, listeners)
}

// ResizedImageData returns the canonical image resampled to size. Views are
// served from the resize cache; only a miss resamples. A zero size, or the
// canonical size itself, yields the canonical image. The canonical image is
// never modified. Returns nil, nil when no image is published.
func (o *Outport) ResizedImageData(size Size) (*Image, error) {
	o.mu.RLock()
	img := o.image
	r := o.resampler
	o.mu.RUnlock()

	if img == nil {
		return nil, nil
	}
	if size.IsZero() || size == img.Size() {
		return img, nil
	}
	if !size.IsValid() {
		return nil, fmt.Errorf("%w: outport %q view %s", ErrInvalidSize, o.identifier, size)
	}

	if cached, ok := o.cache.getFor(img, size); ok {
		Logger().Debug("imgport: resize cache hit", "outport", o.identifier, "size", size)
		return cached, nil
	}

	resized, err := img.Resized(size, r)
	if err != nil {
		Logger().Warn("imgport: resample failed", "outport", o.identifier, "size", size, "err", err)
		return nil, fmt.Errorf("outport %q: %w", o.identifier, err)
	}
	stored := o.cache.putFor(img, size, resized)
	Logger().Debug("imgport: resampled", "outport", o.identifier,
		"from", img.Size(), "to", size, "cached", stored)
	return resized, nil
}

// DataForPort returns what port reads from this outport: the canonical image
// when the port lets the outport determine the size or when inports own the
// size, otherwise a view at the port's requested size.
func (o *Outport) DataForPort(port ImagePort) (*Image, error) {
	o.mu.RLock()
	img := o.image
	authority := o.authority
	req, recorded := o.requested[port]
	o.mu.RUnlock()

	if img == nil {
		return nil, nil
	}
	if port == nil || port.IsOutportDeterminingSize() || authority == ConsumerOwnsSize {
		return img, nil
	}
	if !recorded {
		req = port.RequestedDimensions(o)
	}
	return o.ResizedImageData(req)
}

// connect registers port and handles its initial resize request.
func (o *Outport) connect(port ImagePort, e *ResizeEvent) {
	o.mu.Lock()
	if !slices.Contains(o.inports, port) {
		o.inports = append(o.inports, port)
	}
	o.mu.Unlock()

	o.PropagateEvent(e, port)
}

// DisconnectFrom drops port's connection and everything recorded for it.
// The inport side of the connection is dropped as well.
func (o *Outport) DisconnectFrom(port ImagePort) {
	if port == nil {
		return
	}
	o.release(port)
	if d, ok := port.(outportDetacher); ok {
		d.detachOutport(o)
	}
}

// release drops the outport's bookkeeping for port and prunes cached views
// no remaining inport asks for. The canonical image keeps its size.
func (o *Outport) release(port ImagePort) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if i := slices.Index(o.inports, port); i >= 0 {
		o.inports = slices.Delete(o.inports, i, i+1)
	}
	delete(o.requested, port)

	keep := make([]Size, 0, len(o.requested))
	for _, s := range o.requested {
		keep = append(keep, s)
	}
	if n := o.cache.Prune(keep); n > 0 {
		Logger().Debug("imgport: pruned resize cache", "outport", o.identifier, "entries", n)
	}
}

// IsConnected reports whether any inport is connected.
func (o *Outport) IsConnected() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return len(o.inports) > 0
}

// ConnectedInports returns the connected inports in connection order.
func (o *Outport) ConnectedInports() []ImagePort {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return slices.Clone(o.inports)
}

// RequestedDimensions returns what port last requested from this outport.
func (o *Outport) RequestedDimensions(port ImagePort) (Size, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s, ok := o.requested[port]
	return s, ok
}

// LargestRequestedDimensions returns the componentwise maximum over every
// connected inport's request.
func (o *Outport) LargestRequestedDimensions() Size {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var m Size
	for _, s := range o.requested {
		m = m.Max(s)
	}
	return m
}

// SetHandleResizeEvents sets whether resize requests resize the owned image.
// Takes effect on the next request.
func (o *Outport) SetHandleResizeEvents(handle bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.handleResizeEvents = handle
}

// IsHandlingResizeEvents reports whether resize requests resize the image.
func (o *Outport) IsHandlingResizeEvents() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.handleResizeEvents
}

// SetSizingAuthority sets whose size readers see. Takes effect on the next read.
func (o *Outport) SetSizingAuthority(a SizingAuthority) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.authority = a
}

// SizingAuthority returns whose size readers see.
func (o *Outport) SizingAuthority() SizingAuthority {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.authority
}

// Resampler returns the resampler used for views and resizes.
func (o *Outport) Resampler() Resampler {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.resampler
}

// Invalidate drops every cached view, e.g. after editing EditableData.
func (o *Outport) Invalidate() {
	o.cache.InvalidateAll()
}

// CacheStats returns the resize cache statistics.
func (o *Outport) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// CachedSizes returns the sizes with a cached view, most recently used first.
func (o *Outport) CachedSizes() []Size {
	return o.cache.Sizes()
}

// AddResizeListener registers fn to be called after every change of the
// canonical size, whatever caused it. fn runs on the goroutine that made
// the change, after the outport's lock is released.
func (o *Outport) AddResizeListener(fn func(*ResizeEvent)) ListenerID {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextListener++
	o.listeners = append(o.listeners, resizeListener{id: o.nextListener, fn: fn})
	return o.nextListener
}

// RemoveResizeListener unregisters a listener. Reports whether it was found.
func (o *Outport) RemoveResizeListener(id ListenerID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i := slices.IndexFunc(o.listeners, func(l resizeListener) bool { return l.id == id })
	if i < 0 {
		return false
	}
	o.listeners = slices.Delete(o.listeners, i, i+1)
	return true
}

// Info returns a diagnostic snapshot.
func (o *Outport) Info() PortInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return PortInfo{
		Identifier:         o.identifier,
		Kind:               "outport",
		Connections:        len(o.inports),
		HasData:            o.image != nil,
		Editable:           o.image != nil && o.owning,
		Dimensions:         o.dimensionsLocked(),
		HandleResizeEvents: o.handleResizeEvents,
		SizingAuthority:    o.authority,
		Cache:              o.cache.Stats(),
	}
}

func (o *Outport) dimensionsLocked() Size {
	return dimensionsOf(o.image)
}

// resizeNoticeLocked builds the listener notification for a canonical size
// change from prev. Caller must hold o.mu.
func (o *Outport) resizeNoticeLocked(prev Size) (*ResizeEvent, []resizeListener) {
	cur := o.dimensionsLocked()
	if cur == prev || len(o.listeners) == 0 {
		return nil, nil
	}
	e := NewResizeEvent(cur)
	e.SetPreviousSize(prev)
	return e, slices.Clone(o.listeners)
}

func fire(e *ResizeEvent, listeners []resizeListener) {
	if e == nil {
		return
	}
	for _, l := range listeners {
		l.fn(e)
	}
}

func dimensionsOf(img *Image) Size {
	if img == nil {
		return Size{}
	}
	return img.Size()
}
