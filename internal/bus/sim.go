package bus

import (
	"math"
	"sync"
	"time"

	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/pool"
)

// Simulator is an in-process ECU answering service 01 requests with
// slowly varying engine values. It exists for bench runs without a car.
type Simulator struct {
	mu          sync.Mutex
	rx          chan Frame
	done        chan struct{}
	closeOnce   sync.Once
	start       time.Time
	now         func() time.Time
	unsupported map[uint8]bool
	chatter     bool
	failSend    bool
}

var _ Transport = (*Simulator)(nil)

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithUnsupported makes the ECU stay silent for the given PIDs.
func WithUnsupported(pids ...uint8) SimOption {
	return func(s *Simulator) {
		for _, p := range pids {
			s.unsupported[p] = true
		}
	}
}

// WithChatter makes another node answer every request first with a
// frame for a different PID.
func WithChatter() SimOption {
	return func(s *Simulator) { s.chatter = true }
}

// WithSimClock replaces the wall clock used to shape the values.
func WithSimClock(now func() time.Time) SimOption {
	return func(s *Simulator) { s.now = now }
}

// NewSimulator creates a simulated ECU.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{
		rx:          make(chan Frame, 16),
		done:        make(chan struct{}),
		now:         time.Now,
		unsupported: make(map[uint8]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	return s
}

// SetSendFailure makes every following Send fail until cleared.
func (s *Simulator) SetSendFailure(fail bool) {
	s.mu.Lock()
	s.failSend = fail
	s.mu.Unlock()
}

// SetUnsupported toggles whether pid is answered.
func (s *Simulator) SetUnsupported(pid uint8, unsupported bool) {
	s.mu.Lock()
	s.unsupported[pid] = unsupported
	s.mu.Unlock()
}

// Send accepts a request and queues the ECU answer, if any.
func (s *Simulator) Send(f Frame) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	s.mu.Lock()
	failSend := s.failSend
	silent := f.DLC >= 3 && s.unsupported[f.Data[2]]
	chatter := s.chatter
	s.mu.Unlock()

	if failSend {
		return ErrClosed
	}
	if f.ID != obd.FunctionalRequestID || f.DLC < 3 || f.Data[1] != obd.ServiceCurrentData {
		return nil
	}

	pid := f.Data[2]
	if silent {
		return nil
	}
	if _, ok := obd.Lookup(pid); !ok {
		return nil
	}

	if chatter {
		s.enqueue(response(obd.ResponseIDFirst+1, pid+1, [4]byte{}))
	}

	elapsed := s.now().Sub(s.start).Seconds()
	s.enqueue(response(obd.ResponseIDFirst, pid, simRaw(pid, elapsed)))
	return nil
}

func (s *Simulator) enqueue(f Frame) {
	select {
	case s.rx <- f:
	default:
		// bus overrun: frame lost
	}
}

// Receive returns the next queued frame or ErrTimeout.
func (s *Simulator) Receive(timeout time.Duration) (Frame, error) {
	select {
	case f := <-s.rx:
		return f, nil
	default:
	}

	t := pool.GetTimer(timeout)
	defer pool.PutTimer(t)

	select {
	case f := <-s.rx:
		return f, nil
	case <-s.done:
		return Frame{}, ErrClosed
	case <-t.C:
		return Frame{}, ErrTimeout
	}
}

// Close stops the simulator. Blocked receivers return ErrClosed.
func (s *Simulator) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func response(id uint32, pid uint8, b [4]byte) Frame {
	return Frame{
		ID:  id,
		DLC: 8,
		Data: [MaxDataLen]byte{
			0x06, obd.ServiceCurrentData + obd.ResponseOffset, pid,
			b[0], b[1], b[2], b[3], 0x55,
		},
	}
}

// wave oscillates between lo and hi with the given period in seconds.
func wave(t, period, lo, hi float64) float64 {
	return lo + (hi-lo)*(0.5+0.5*math.Sin(2*math.Pi*t/period))
}

func u8(v float64) byte {
	return byte(math.Max(0, math.Min(255, math.Round(v))))
}

func u16(v float64) [4]byte {
	w := uint16(math.Max(0, math.Min(65535, math.Round(v))))
	return [4]byte{byte(w >> 8), byte(w)}
}

// simRaw encodes plausible engine values for pid at t seconds.
func simRaw(pid uint8, t float64) [4]byte {
	rpm := wave(t, 20, 800, 3200)
	switch pid {
	case obd.PIDEngineRPM:
		return u16(rpm * 4)
	case obd.PIDVehicleSpeed:
		return [4]byte{u8(rpm / 40)}
	case obd.PIDEngineLoad:
		return [4]byte{u8(wave(t, 20, 20, 80) * 255 / 100)}
	case obd.PIDThrottlePos:
		return [4]byte{u8(wave(t, 20, 12, 60) * 255 / 100)}
	case obd.PIDTimingAdvance:
		return [4]byte{u8((wave(t, 7, 5, 25) + 64) * 2)}
	case obd.PIDMAFRate:
		return u16(rpm / 100 * 100)
	case obd.PIDCoolantTemp:
		return [4]byte{u8(math.Min(90, 20+t/2) + 40)}
	case obd.PIDIntakeAirTemp:
		return [4]byte{u8(35 + 40)}
	case obd.PIDAmbientAirTemp:
		return [4]byte{u8(21 + 40)}
	case obd.PIDIntakePressure:
		return [4]byte{u8(wave(t, 20, 30, 95))}
	case obd.PIDBarometric:
		return [4]byte{101}
	case obd.PIDControlVoltage:
		return u16(wave(t, 60, 13.8, 14.4) * 1000)
	case obd.PIDFuelLevel:
		return [4]byte{u8(math.Max(5, 75-t/60) * 255 / 100)}
	case obd.PIDFuelPressure:
		return [4]byte{u8(300 / 3)}
	case obd.PIDShortFuelTrim:
		return [4]byte{u8(wave(t, 3, -4, 4)*128/100 + 128)}
	case obd.PIDLongFuelTrim:
		return [4]byte{u8(2*128/100.0 + 128)}
	case obd.PIDDistanceWithMIL:
		return u16(0)
	case obd.PIDMonitorStatus:
		return [4]byte{0x00, 0x07, 0xE5, 0x00}
	}
	return [4]byte{}
}
