package writer

import "errors"

type writeCall struct {
	unitID uint8
	addr   uint16
	regs   []uint16
}

type fakeEndpointClient struct {
	calls []writeCall
	err   error
}

func (f *fakeEndpointClient) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	f.calls = append(f.calls, writeCall{
		unitID: unitID,
		addr:   addr,
		regs:   append([]uint16(nil), regs...),
	})
	return f.err
}

func (f *fakeEndpointClient) reset() {
	f.calls = nil
}

var errWrite = errors.New("write failed")
