package simulator

import (
	"fmt"
	"time"

	"github.com/iMithrellas/ttlens/internal/device"
)

// ARC message codes understood by the simulated firmware. Codes may also be
// sent with the 0xaa00 message-type prefix.
const (
	ArcMsgNop           uint32 = 0x11
	ArcMsgGetAICLK      uint32 = 0x34
	ArcMsgGoBusy        uint32 = 0x52
	ArcMsgGoLongIdle    uint32 = 0x54
	ArcMsgGetHarvesting uint32 = 0x57
	ArcMsgTest          uint32 = 0x90

	arcMsgPrefix     = 0xaa00
	arcStatusSuccess = 0
)

func (c *chip) arcMsg(code uint32, wait bool, arg0, arg1 uint32, timeout time.Duration) (device.ArcReply, error) {
	if code&0xff00 == arcMsgPrefix {
		code &= 0xff
	}
	if wait && timeout < 0 {
		return device.ArcReply{}, fmt.Errorf("arc: negative timeout %v", timeout)
	}

	var reply device.ArcReply
	switch code {
	case ArcMsgNop:
	case ArcMsgTest:
		reply.Ret0 = arg0 + 1
		reply.Ret1 = arg1
	case ArcMsgGetAICLK:
		reply.Ret0, _ = c.readTelemetry(TelemetryAICLK)
	case ArcMsgGetHarvesting:
		reply.Ret0 = c.cfg.HarvestingEfuse
	case ArcMsgGoBusy:
		c.setTelemetry(TelemetryAICLK, c.cfg.AICLK)
	case ArcMsgGoLongIdle:
		c.setTelemetry(TelemetryAICLK, c.cfg.AICLKIdle)
	default:
		return device.ArcReply{}, fmt.Errorf("%w: arc message %#x", device.ErrNotSupported, code)
	}
	reply.Status = arcStatusSuccess
	if !wait {
		// Fire and forget: the message ran but no results are collected.
		return device.ArcReply{Status: arcStatusSuccess}, nil
	}
	return reply, nil
}
