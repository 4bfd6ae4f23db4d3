package domain

import "time"

type LatLng struct {
	Lat float64
	Lng float64
}

// Path is the fixed route the map marker is drawn along. It has no navigational meaning.
type Path struct {
	From LatLng
	To   LatLng
}

func (p Path) At(fraction float64) LatLng {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	return LatLng{
		Lat: p.From.Lat + (p.To.Lat-p.From.Lat)*fraction,
		Lng: p.From.Lng + (p.To.Lng-p.From.Lng)*fraction,
	}
}

// TrackingProfile parameterizes one tracking simulator. Deliveries and
// roadside technicians share the state machine and differ only here.
type TrackingProfile struct {
	Name        string
	Stages      []string
	StartOffset int
	InitialETA  int
	ETAStep     int
	Interval    time.Duration
	Path        Path
}

type DeliveryStatus int

const (
	DeliveryReceived DeliveryStatus = iota
	DeliveryPreparing
	DeliveryReadyForPickup
	DeliveryOnTheWay
	DeliveryDelivered
)

var deliveryStages = []string{
	"Order Received",
	"Preparing",
	"Ready for Pickup",
	"On the Way",
	"Delivered",
}

func (s DeliveryStatus) String() string {
	if s < 0 || int(s) >= len(deliveryStages) {
		return "unknown"
	}
	return deliveryStages[s]
}

func DeliveryProfile() TrackingProfile {
	return TrackingProfile{
		Name:        "delivery",
		Stages:      append([]string(nil), deliveryStages...),
		StartOffset: int(DeliveryReadyForPickup),
		InitialETA:  25,
		ETAStep:     5,
		Interval:    10 * time.Second,
		Path: Path{
			From: LatLng{Lat: 37.7749, Lng: -122.4194},
			To:   LatLng{Lat: 37.7849, Lng: -122.4094},
		},
	}
}

func TechnicianProfile() TrackingProfile {
	return TrackingProfile{
		Name: "technician",
		Stages: []string{
			"Service Requested",
			"Technician En Route",
			"Technician Arrived",
			"Service In Progress",
			"Completed",
		},
		StartOffset: 1,
		InitialETA:  25,
		ETAStep:     5,
		Interval:    8 * time.Second,
		Path: Path{
			From: LatLng{Lat: 37.7849, Lng: -122.4094},
			To:   LatLng{Lat: 37.7749, Lng: -122.4194},
		},
	}
}

func (p TrackingProfile) Terminal() int { return len(p.Stages) - 1 }

// Progress is max(0, (index - StartOffset) / remaining stages).
func (p TrackingProfile) Progress(index int) float64 {
	remaining := p.Terminal() - p.StartOffset
	if remaining <= 0 {
		if index >= p.Terminal() {
			return 1
		}
		return 0
	}
	f := float64(index-p.StartOffset) / float64(remaining)
	if f < 0 {
		return 0
	}
	return f
}

type TrackingSnapshot struct {
	Profile    string
	Index      int
	Stage      string
	Stages     []string
	ETAMinutes int
	Progress   float64
	Position   LatLng
	Done       bool
}

// Tracker is the tracking state machine. Index only moves forward, one stage
// per Advance, and stops at the terminal stage.
type Tracker struct {
	profile TrackingProfile
	index   int
	eta     int
}

func NewTracker(p TrackingProfile) *Tracker {
	return &Tracker{profile: p, eta: p.InitialETA}
}

// Advance moves one stage forward. It returns false once the terminal stage is
// reached. The ETA drops to zero on arrival.
func (t *Tracker) Advance() bool {
	if t.Done() {
		return false
	}
	t.index++
	t.eta -= t.profile.ETAStep
	if t.eta < 0 || t.Done() {
		t.eta = 0
	}
	return true
}

func (t *Tracker) Index() int { return t.index }

func (t *Tracker) Done() bool { return t.index >= t.profile.Terminal() }

func (t *Tracker) Profile() TrackingProfile { return t.profile }

func (t *Tracker) Snapshot() TrackingSnapshot {
	progress := t.profile.Progress(t.index)
	return TrackingSnapshot{
		Profile:    t.profile.Name,
		Index:      t.index,
		Stage:      t.profile.Stages[t.index],
		Stages:     append([]string(nil), t.profile.Stages...),
		ETAMinutes: t.eta,
		Progress:   progress,
		Position:   t.profile.Path.At(progress),
		Done:       t.Done(),
	}
}
