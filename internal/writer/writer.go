// internal/writer/writer.go
package writer

import (
	"errors"
	"fmt"

	"github.com/tamzrod/obd-monitor/internal/obd"
	"github.com/tamzrod/obd-monitor/internal/status"
)

// blockWriter keeps one fixed-size register block in sync with the
// endpoint. The first write, and the first write after any failure,
// re-asserts the whole block. Otherwise only runs of changed registers
// are written.
type blockWriter struct {
	cli    endpointClient
	unitID uint8
	base   uint16
	name   string

	needFull bool
	last     []uint16
}

func newBlockWriter(name string, cli endpointClient, unitID uint8, base uint16, size int) *blockWriter {
	return &blockWriter{
		cli:      cli,
		unitID:   unitID,
		base:     base,
		name:     name,
		needFull: true,
		last:     make([]uint16, size),
	}
}

func (w *blockWriter) write(regs []uint16) error {
	if len(regs) != len(w.last) {
		return fmt.Errorf("%s: block size %d, want %d", w.name, len(regs), len(w.last))
	}

	// ------------------------------------------------------------
	// Full block write (identity re-assert)
	// ------------------------------------------------------------
	if w.needFull {
		if err := w.cli.WriteRegisters(w.unitID, w.base, regs); err != nil {
			return fmt.Errorf("%s: full block write failed: %w", w.name, err)
		}
		copy(w.last, regs)
		w.needFull = false
		return nil
	}

	// ------------------------------------------------------------
	// Changed runs only
	// ------------------------------------------------------------
	var errs []error

	for i := 0; i < len(regs); {
		if regs[i] == w.last[i] {
			i++
			continue
		}

		j := i + 1
		for j < len(regs) && regs[j] != w.last[j] {
			j++
		}

		addr := w.base + uint16(i)
		if err := w.cli.WriteRegisters(w.unitID, addr, regs[i:j]); err != nil {
			errs = append(errs, fmt.Errorf("addr %d qty %d: %w", addr, j-i, err))
		} else {
			copy(w.last[i:j], regs[i:j])
		}
		i = j
	}

	if len(errs) > 0 {
		// Any partial failure introduces doubt: re-assert on next write.
		w.needFull = true
		return fmt.Errorf("%s: %w", w.name, errors.Join(errs...))
	}

	return nil
}

// invalidate forces the next write to re-assert the whole block.
func (w *blockWriter) invalidate() {
	w.needFull = true
}

// DataWriter delivers telemetry snapshots into the data block.
type DataWriter struct {
	block *blockWriter
}

// NewDataWriter builds the telemetry block writer.
func NewDataWriter(plan Plan, cli endpointClient) *DataWriter {
	return &DataWriter{
		block: newBlockWriter("data writer", cli, plan.UnitID, plan.DataAddress, status.DataBlockSize),
	}
}

// Write encodes s and writes what changed since the last success.
func (w *DataWriter) Write(s obd.Snapshot) error {
	return w.block.write(status.EncodeData(s))
}
