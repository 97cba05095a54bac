package writer

import (
	"testing"

	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

func TestBlockWriter_FirstWriteIsFullBlock(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newBlockWriter("test", cli, 7, 100, 4)

	if err := w.write([]uint16{0, 0, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cli.calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(cli.calls))
	}
	c := cli.calls[0]
	if c.unitID != 7 || c.addr != 100 || len(c.regs) != 4 {
		t.Fatalf("unexpected full write: %+v", c)
	}
}

func TestBlockWriter_WritesChangedRunsOnly(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newBlockWriter("test", cli, 1, 100, 6)

	if err := w.write([]uint16{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cli.reset()

	if err := w.write([]uint16{9, 2, 8, 8, 5, 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cli.calls) != 2 {
		t.Fatalf("expected 2 run writes, got %d: %+v", len(cli.calls), cli.calls)
	}
	if cli.calls[0].addr != 100 || len(cli.calls[0].regs) != 1 || cli.calls[0].regs[0] != 9 {
		t.Fatalf("unexpected first run: %+v", cli.calls[0])
	}
	if cli.calls[1].addr != 102 || len(cli.calls[1].regs) != 2 {
		t.Fatalf("unexpected second run: %+v", cli.calls[1])
	}

	cli.reset()
	if err := w.write([]uint16{9, 2, 8, 8, 5, 6}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cli.calls) != 0 {
		t.Fatalf("unchanged block must not be written, got %+v", cli.calls)
	}
}

func TestBlockWriter_FailureForcesFullReassert(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newBlockWriter("test", cli, 1, 0, 3)

	_ = w.write([]uint16{1, 1, 1})

	cli.err = errWrite
	if err := w.write([]uint16{1, 2, 1}); err == nil {
		t.Fatalf("expected error")
	}

	cli.err = nil
	cli.reset()
	if err := w.write([]uint16{1, 2, 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cli.calls) != 1 || len(cli.calls[0].regs) != 3 {
		t.Fatalf("expected one full block write after failure, got %+v", cli.calls)
	}
}

func TestBlockWriter_FailedFullWriteRetriesFull(t *testing.T) {
	cli := &fakeEndpointClient{err: errWrite}
	w := newBlockWriter("test", cli, 1, 0, 2)

	if err := w.write([]uint16{5, 5}); err == nil {
		t.Fatalf("expected error")
	}

	cli.err = nil
	cli.reset()
	_ = w.write([]uint16{5, 5})

	if len(cli.calls) != 1 || len(cli.calls[0].regs) != 2 {
		t.Fatalf("expected full retry, got %+v", cli.calls)
	}
}

func TestBlockWriter_RejectsWrongSize(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := newBlockWriter("test", cli, 1, 0, 2)

	if err := w.write([]uint16{1}); err == nil {
		t.Fatalf("expected size error")
	}
	if len(cli.calls) != 0 {
		t.Fatalf("nothing should be written")
	}
}

func TestDataWriter_EncodesSnapshot(t *testing.T) {
	cli := &fakeEndpointClient{}
	w := NewDataWriter(Plan{UnitID: 2, DataAddress: 40}, cli)

	if err := w.Write(obd.Snapshot{RPM: 1500, Speed: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cli.calls) != 1 {
		t.Fatalf("expected 1 write, got %d", len(cli.calls))
	}
	c := cli.calls[0]
	if c.addr != 40 || len(c.regs) != status.DataBlockSize {
		t.Fatalf("unexpected data write: addr=%d len=%d", c.addr, len(c.regs))
	}
	if c.regs[0] != 1500 || c.regs[1] != 60 {
		t.Fatalf("unexpected data registers: %v", c.regs[:2])
	}

	cli.reset()
	_ = w.Write(obd.Snapshot{RPM: 1600, Speed: 60})
	if len(cli.calls) != 1 || cli.calls[0].addr != 40 || len(cli.calls[0].regs) != 1 {
		t.Fatalf("expected rpm-only write, got %+v", cli.calls)
	}
}
