package imgport

import (
	"errors"
	"image/color"
	"sync"
	"testing"
)

func connect(t *testing.T, in interface{ ConnectTo(*Outport) error }, out *Outport) {
	t.Helper()
	if err := in.ConnectTo(out); err != nil {
		t.Fatalf("ConnectTo() = %v", err)
	}
}

func TestInportNegotiationScenario(t *testing.T) {
	p, r := newProducer(t, Size{256, 256})
	a := NewInport("a.inport", WithDefaultSize(Size{512, 256}))
	b := NewInport("b.inport", WithDefaultSize(Size{256, 512}))

	connect(t, a, p)
	connect(t, b, p)

	if got := p.Dimensions(); got != (Size{512, 512}) {
		t.Fatalf("producer size = %v, want 512x512", got)
	}
	if got := mustData(t, a).Size(); got != (Size{512, 256}) {
		t.Errorf("A reads %v, want 512x256", got)
	}
	if got := mustData(t, b).Size(); got != (Size{256, 512}) {
		t.Errorf("B reads %v, want 256x512", got)
	}

	before := r.calls.Load()
	if got := mustData(t, a).Size(); got != (Size{512, 256}) {
		t.Errorf("A re-reads %v", got)
	}
	if r.calls.Load() != before {
		t.Error("repeated read of an unchanged producer resampled again")
	}
	if p.Data().Size() != (Size{512, 512}) {
		t.Error("reads modified the canonical image")
	}
}

func TestInportMaxAggregation(t *testing.T) {
	p, _ := newProducer(t, Size{10, 10})
	a := NewInport("a", WithDefaultSize(Size{100, 50}))
	b := NewInport("b", WithDefaultSize(Size{80, 200}))
	connect(t, a, p)
	connect(t, b, p)

	if got := p.Dimensions(); got != (Size{100, 200}) {
		t.Errorf("producer size = %v, want 100x200", got)
	}
}

func TestInportPolicyTable(t *testing.T) {
	canonical := Size{640, 480}
	request := Size{320, 240}

	tests := []struct {
		authority    SizingAuthority
		handle       bool
		producerSize Size
		consumerSees Size
	}{
		{ProducerOwnsSize, false, canonical, request},
		{ProducerOwnsSize, true, request, request},
		{ConsumerOwnsSize, false, canonical, canonical},
		{ConsumerOwnsSize, true, request, request},
	}
	for _, tt := range tests {
		t.Run(tt.authority.String(), func(t *testing.T) {
			p, _ := newProducer(t, canonical,
				WithSizingAuthority(tt.authority), WithHandleResizeEvents(tt.handle))
			c := NewInport("consumer", WithDefaultSize(request))
			connect(t, c, p)

			if got := p.Dimensions(); got != tt.producerSize {
				t.Errorf("handle=%v: producer size = %v, want %v", tt.handle, got, tt.producerSize)
			}
			img := mustData(t, c)
			if got := img.Size(); got != tt.consumerSees {
				t.Errorf("handle=%v: consumer sees %v, want %v", tt.handle, got, tt.consumerSees)
			}
			if tt.authority == ConsumerOwnsSize && img != p.Data() {
				t.Errorf("handle=%v: consumer did not get the canonical image verbatim", tt.handle)
			}
		})
	}
}

func TestInportOutportDeterminesSize(t *testing.T) {
	p, r := newProducer(t, Size{640, 480}, WithHandleResizeEvents(false))
	c := NewInport("c", WithDefaultSize(Size{320, 240}), WithOutportDeterminesSize(true))
	connect(t, c, p)

	if mustData(t, c) != p.Data() {
		t.Error("outport-determined read must return the canonical image")
	}
	c.SetOutportDeterminesSize(false)
	if got := mustData(t, c).Size(); got != (Size{320, 240}) {
		t.Errorf("after toggling, consumer sees %v", got)
	}
	if c.IsOutportDeterminingSize() || r.calls.Load() != 1 {
		t.Errorf("toggle state or resample count wrong (calls=%d)", r.calls.Load())
	}
}

func TestInportDisconnectCleanup(t *testing.T) {
	p, _ := newProducer(t, Size{64, 64})
	a := NewInport("a", WithDefaultSize(Size{32, 32}))
	b := NewInport("b", WithDefaultSize(Size{128, 16}))
	connect(t, a, p)
	connect(t, b, p)

	// A requests a larger size explicitly, then disconnects.
	a.PropagateEvent(NewResizeEvent(Size{512, 256}), p)
	if got := p.Dimensions(); got != (Size{512, 256}) {
		t.Fatalf("producer size = %v, want 512x256", got)
	}
	if _, err := a.Data(); err != nil {
		t.Fatal(err)
	}

	a.DisconnectFrom(p)
	if got := a.RequestedDimensions(p); got != (Size{32, 32}) {
		t.Errorf("after disconnect A requests %v, want its default 32x32", got)
	}
	if a.IsConnected() || !p.IsConnected() {
		t.Error("connection state wrong after disconnect")
	}
	if _, ok := p.RequestedDimensions(a); ok {
		t.Error("producer kept A's request")
	}
	if img, _ := a.Data(); img != nil {
		t.Error("disconnected inport still reads data")
	}

	// The next negotiation ignores A.
	b.PropagateResizeEvent(NewResizeEvent(Size{100, 50}))
	if got := p.Dimensions(); got != (Size{100, 50}) {
		t.Errorf("producer size = %v, want 100x50", got)
	}
}

func TestOutportDisconnectFromInport(t *testing.T) {
	p, _ := newProducer(t, Size{64, 64}, WithHandleResizeEvents(false))
	a := NewInport("a", WithDefaultSize(Size{32, 32}))
	b := NewInport("b", WithDefaultSize(Size{16, 16}))
	connect(t, a, p)
	connect(t, b, p)
	mustData(t, a)
	mustData(t, b)
	if got := len(p.CachedSizes()); got != 2 {
		t.Fatalf("cached views = %d, want 2", got)
	}

	p.DisconnectFrom(a)
	if a.IsConnected() {
		t.Error("inport side not dropped")
	}
	if got := p.CachedSizes(); len(got) != 1 || got[0] != (Size{16, 16}) {
		t.Errorf("CachedSizes() = %v, want [16x16]", got)
	}
	if got := p.ConnectedInports(); len(got) != 1 || got[0] != ImagePort(b) {
		t.Errorf("ConnectedInports() = %v", got)
	}
}

func TestInportCapacity(t *testing.T) {
	p1, _ := newProducer(t, Size{8, 8})
	p2, _ := newProducer(t, Size{8, 8})
	in := NewInport("single", WithDefaultSize(Size{4, 4}))
	connect(t, in, p1)

	if err := in.ConnectTo(p2); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("second ConnectTo() error = %v, want ErrCapacityExceeded", err)
	}
	if p2.IsConnected() || in.NumConnections() != 1 {
		t.Error("failed connection left partial state")
	}
	if p2.Dimensions() != (Size{8, 8}) {
		t.Error("failed connection sent a resize request")
	}
	if err := in.ConnectTo(p1); !errors.Is(err, ErrCapacityExceeded) && !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("duplicate ConnectTo() error = %v", err)
	}
	if err := in.ConnectTo(nil); !errors.Is(err, ErrNilOutport) {
		t.Errorf("ConnectTo(nil) error = %v", err)
	}
	if in.MaxConnections() != 1 {
		t.Errorf("MaxConnections() = %d", in.MaxConnections())
	}
}

func TestMultiInportFanIn(t *testing.T) {
	p1, _ := newProducer(t, Size{100, 100}, WithHandleResizeEvents(false))
	p2, _ := newProducer(t, Size{50, 50}, WithHandleResizeEvents(false))
	empty := NewOutport("empty")

	m := NewMultiInport("fan.in")
	connect(t, m, p1)
	connect(t, m, p2)
	connect(t, m, empty)

	m.PropagateEvent(NewResizeEvent(Size{10, 10}), p1)
	m.PropagateEvent(NewResizeEvent(Size{20, 40}), p2)
	if m.RequestedDimensions(p1) != (Size{10, 10}) || m.RequestedDimensions(p2) != (Size{20, 40}) {
		t.Error("requests not tracked per outport")
	}

	images, err := m.VectorData()
	if err != nil {
		t.Fatalf("VectorData() = %v", err)
	}
	if len(images) != 2 || images[0].Size() != (Size{10, 10}) || images[1].Size() != (Size{20, 40}) {
		t.Errorf("VectorData() sizes wrong: %d images", len(images))
	}
	sources, err := m.SourceVectorData()
	if err != nil || len(sources) != 2 || sources[1].Outport != p2 {
		t.Errorf("SourceVectorData() = %v, %v", sources, err)
	}
	if got := mustData(t, m).Size(); got != (Size{10, 10}) {
		t.Errorf("Data() reads %v from the first outport", got)
	}
	if !m.HasData() {
		t.Error("HasData() = false with two producers holding data")
	}

	limited := NewMultiInport("limited", WithMaxConnections(1))
	connect(t, limited, p1)
	if err := limited.ConnectTo(p2); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("ConnectTo() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestInportHasData(t *testing.T) {
	in := NewInport("in")
	if in.HasData() {
		t.Error("unconnected inport has data")
	}
	if img, err := in.Data(); img != nil || err != nil {
		t.Errorf("unconnected Data() = %v, %v", img, err)
	}
	out := NewOutport("out")
	connect(t, in, out)
	if in.HasData() {
		t.Error("inport connected to an empty outport has data")
	}
	out.SetData(mustImage(t, Size{4, 4}), false)
	if !in.HasData() {
		t.Error("HasData() = false after SetData")
	}

	m := NewMultiInport("m")
	if m.HasData() {
		t.Error("unconnected multi inport has data")
	}
}

func TestInportBroadcastSetsDefault(t *testing.T) {
	p1, _ := newProducer(t, Size{8, 8})
	p2, _ := newProducer(t, Size{8, 8})
	m := NewMultiInport("m")
	connect(t, m, p1)

	m.PropagateResizeEvent(NewResizeEvent(Size{64, 32}))
	if got := p1.Dimensions(); got != (Size{64, 32}) {
		t.Errorf("p1 size = %v, want 64x32", got)
	}
	if def, ok := m.DefaultSize(); !ok || def != (Size{64, 32}) {
		t.Errorf("DefaultSize() = %v, %v", def, ok)
	}

	// A producer connected later inherits the broadcast size.
	connect(t, m, p2)
	if got := p2.Dimensions(); got != (Size{64, 32}) {
		t.Errorf("p2 size = %v, want 64x32", got)
	}
}

func TestInportTargetedEventBeforeConnect(t *testing.T) {
	p, _ := newProducer(t, Size{8, 8})
	in := NewInport("in")

	in.PropagateEvent(NewResizeEvent(Size{24, 12}), p)
	if got := p.Dimensions(); got != (Size{8, 8}) {
		t.Errorf("unconnected target was resized to %v", got)
	}
	if got := in.RequestedDimensions(p); got != (Size{24, 12}) {
		t.Errorf("RequestedDimensions() = %v, want 24x12", got)
	}

	connect(t, in, p)
	if got := p.Dimensions(); got != (Size{24, 12}) {
		t.Errorf("recorded request not sent at connect, size %v", got)
	}
}

func TestInportZeroRequestReadsCanonical(t *testing.T) {
	p, r := newProducer(t, Size{40, 30})
	in := NewInport("in")
	connect(t, in, p)

	if _, ok := p.RequestedDimensions(in); ok {
		t.Error("zero-size connect recorded a request")
	}
	if mustData(t, in) != p.Data() || r.calls.Load() != 0 {
		t.Error("a port without a request must read the canonical image")
	}
	if got := in.Info(); got.Kind != "inport" || got.Connections != 1 || got.DefaultSize != nil {
		t.Errorf("Info() = %+v", got)
	}
}

func TestInportPassOnDataToOutport(t *testing.T) {
	src, _ := newProducer(t, Size{32, 32}, WithHandleResizeEvents(false))
	fillColor(src.Data(), color.RGBA{R: 255, A: 255})
	in := NewInport("relay.inport", WithOutportDeterminesSize(true))
	connect(t, in, src)

	relay, _ := newProducer(t, Size{16, 16})
	if _, err := relay.ResizedImageData(Size{8, 8}); err != nil {
		t.Fatal(err)
	}

	if err := in.PassOnDataToOutport(relay); err != nil {
		t.Fatalf("PassOnDataToOutport() = %v", err)
	}
	if relay.Dimensions() != (Size{16, 16}) {
		t.Error("relay changed size")
	}
	red, _, _, _ := relay.Data().ColorLayer(0).Pixels().At(8, 8).RGBA()
	if !near(red>>8, 255) {
		t.Errorf("relay red = %d, want ~255", red>>8)
	}
	if len(relay.CachedSizes()) != 0 {
		t.Error("relay cache not invalidated")
	}

	borrowed := NewOutport("borrowed")
	borrowed.SetData(mustImage(t, Size{16, 16}), false)
	if err := in.PassOnDataToOutport(borrowed); !errors.Is(err, ErrNotEditable) {
		t.Errorf("PassOnDataToOutport(borrowed) error = %v, want ErrNotEditable", err)
	}
	if err := NewInport("idle").PassOnDataToOutport(relay); err != nil {
		t.Errorf("idle PassOnDataToOutport() = %v, want nil", err)
	}
}

func TestInportConcurrentReads(t *testing.T) {
	p, r := newProducer(t, Size{128, 128}, WithHandleResizeEvents(false))
	sizes := []Size{{64, 64}, {32, 96}, {100, 20}}
	ports := make([]*Inport, len(sizes))
	for i, s := range sizes {
		ports[i] = NewInport("reader", WithDefaultSize(s))
		connect(t, ports[i], p)
	}

	var wg sync.WaitGroup
	for range 16 {
		for i, in := range ports {
			wg.Add(1)
			go func() {
				defer wg.Done()
				img, err := in.Data()
				if err != nil || img == nil || img.Size() != sizes[i] {
					t.Errorf("concurrent Data() = %v, %v", img, err)
				}
			}()
		}
	}
	wg.Wait()

	if got := len(p.CachedSizes()); got != len(sizes) {
		t.Errorf("cached views = %d, want %d", got, len(sizes))
	}
	if got := r.calls.Load(); got < int64(len(sizes)) {
		t.Errorf("resampler called %d times, want at least %d", got, len(sizes))
	}
}

func TestInportReadsDuringDataChange(t *testing.T) {
	p, _ := newProducer(t, Size{64, 64}, WithHandleResizeEvents(false))
	in := NewInport("reader", WithDefaultSize(Size{16, 16}))
	connect(t, in, p)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			p.SetData(mustImage(t, Size{64, 64}), true)
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				if img, err := in.Data(); err != nil || img.Size() != (Size{16, 16}) {
					t.Errorf("Data() = %v, %v", img, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Whatever is cached now was derived from the current image.
	for _, s := range p.CachedSizes() {
		if _, ok := p.cache.getFor(p.Data(), s); !ok {
			t.Errorf("stale entry %v survived a data change", s)
		}
	}
}

func TestInportDisconnectDropsPendingRequest(t *testing.T) {
	p, _ := newProducer(t, Size{8, 8})
	in := NewInport("in")

	in.PropagateEvent(NewResizeEvent(Size{24, 12}), p)
	if got := in.Info().Requested[p.Identifier()]; got != (Size{24, 12}) {
		t.Fatalf("pending request = %v, want 24x12", got)
	}

	in.DisconnectFrom(p)
	if got := in.RequestedDimensions(p); got != (Size{}) {
		t.Errorf("RequestedDimensions() = %v after DisconnectFrom, want zero", got)
	}
	if got := len(in.Info().Requested); got != 0 {
		t.Errorf("Info().Requested has %d entries, want 0", got)
	}
	if p.Dimensions() != (Size{8, 8}) || p.IsConnected() {
		t.Error("dropping a pending request touched the outport")
	}
}
