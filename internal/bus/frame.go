package bus

import (
	"encoding/binary"
)

// Linux struct can_frame geometry.
const (
	frameSize = 16

	canEFFFlag = 0x80000000
	canRTRFlag = 0x40000000
	canErrFlag = 0x20000000
	canSFFMask = 0x000007FF
	canEFFMask = 0x1FFFFFFF
)

// marshalFrame encodes f as a 16-byte struct can_frame
// (id u32 LE, dlc u8, 3 pad bytes, data[8]).
func marshalFrame(f Frame) ([]byte, error) {
	if f.DLC > MaxDataLen {
		return nil, ErrDataTooLong
	}

	raw := make([]byte, frameSize)

	id := f.ID & canSFFMask
	if f.Extended || f.ID != id {
		id = (f.ID & canEFFMask) | canEFFFlag
	}
	binary.LittleEndian.PutUint32(raw[0:4], id)
	raw[4] = f.DLC
	copy(raw[8:], f.Data[:f.DLC])

	return raw, nil
}

// unmarshalFrame decodes a struct can_frame. Error and RTR frames
// are reported with ok=false.
func unmarshalFrame(raw []byte) (f Frame, ok bool) {
	if len(raw) < frameSize {
		return f, false
	}

	id := binary.LittleEndian.Uint32(raw[0:4])
	if id&(canErrFlag|canRTRFlag) != 0 {
		return f, false
	}

	if id&canEFFFlag != 0 {
		f.ID = id & canEFFMask
		f.Extended = true
	} else {
		f.ID = id & canSFFMask
	}

	f.DLC = raw[4]
	if f.DLC > MaxDataLen {
		f.DLC = MaxDataLen
	}
	copy(f.Data[:], raw[8:8+int(f.DLC)])

	return f, true
}
