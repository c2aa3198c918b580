package server

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/iMithrellas/ttlens/internal/device"
	"github.com/iMithrellas/ttlens/internal/tile"
	"github.com/iMithrellas/ttlens/internal/wire"
)

func u32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func u32OrErr(v uint32, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return u32(v), nil
}

// echo answers a successful write with the value written.
func echo(v uint32, err error) ([]byte, error) {
	return u32OrErr(v, err)
}

func text(s string, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// dispatch routes a decoded request to its device method and encodes the
// result. A request type without a route is not supported.
func dispatch(dev device.Device, req wire.Request) ([]byte, error) {
	switch r := req.(type) {
	case wire.Ping:
		return []byte(wire.Pong), nil

	case wire.PCIRead32:
		return u32OrErr(dev.Read32(r.ChipID, r.NocX, r.NocY, r.Address))
	case wire.PCIWrite32:
		return echo(r.Data, dev.Write32(r.ChipID, r.NocX, r.NocY, r.Address, r.Data))
	case wire.PCIRead:
		return dev.Read(r.ChipID, r.NocX, r.NocY, r.Address, r.Size)
	case wire.PCIWrite:
		return echo(uint32(len(r.Data)), dev.Write(r.ChipID, r.NocX, r.NocY, r.Address, r.Data))
	case wire.PCIRead32Raw:
		return u32OrErr(dev.Read32Raw(r.ChipID, r.Address))
	case wire.PCIWrite32Raw:
		return echo(r.Data, dev.Write32Raw(r.ChipID, r.Address, r.Data))
	case wire.DMABufferRead32:
		return u32OrErr(dev.DMABufferRead32(r.ChipID, r.Address, r.Channel))

	case wire.ArcMsg:
		timeout := time.Duration(r.TimeoutMs) * time.Millisecond
		rep, err := dev.ArcMsg(r.ChipID, r.MsgCode, r.WaitForDone, r.Arg0, r.Arg1, timeout)
		if err != nil {
			return nil, err
		}
		out := u32(rep.Status)
		out = binary.LittleEndian.AppendUint32(out, rep.Ret0)
		return binary.LittleEndian.AppendUint32(out, rep.Ret1), nil
	case wire.ReadArcTelemetryEntry:
		return u32OrErr(dev.ReadArcTelemetryEntry(r.ChipID, r.TelemetryTag))
	case wire.GetDeviceArch:
		return text(dev.DeviceArch(r.ChipID))

	case wire.JTAGRead32:
		return u32OrErr(dev.JTAGRead32(r.ChipID, r.NocX, r.NocY, r.Address))
	case wire.JTAGWrite32:
		return echo(r.Data, dev.JTAGWrite32(r.ChipID, r.NocX, r.NocY, r.Address, r.Data))
	case wire.JTAGReadAXI32:
		return u32OrErr(dev.JTAGReadAXI32(r.ChipID, r.Address))
	case wire.JTAGWriteAXI32:
		return echo(r.Data, dev.JTAGWriteAXI32(r.ChipID, r.Address, r.Data))

	case wire.PCIReadTile:
		return text(dev.ReadTile(r.ChipID, r.NocX, r.NocY, r.Address, r.Size, tile.Format(r.DataFormat)))
	case wire.GetClusterDescription:
		return text(dev.ClusterDescription())
	case wire.ConvertCoordinate:
		x, y, err := dev.ConvertCoordinate(r.ChipID, r.NocX, r.NocY, r.CoreType, r.CoordSystem)
		if err != nil {
			return nil, err
		}
		return []byte{x, y}, nil
	case wire.GetDeviceIDs:
		return dev.DeviceIDs()

	case wire.GetFile:
		return dev.File(r.Path)
	case wire.GetRunDirPath:
		return text(dev.RunDirPath())
	case wire.GetDeviceSocDescription:
		return text(dev.SocDescription(r.ChipID))
	}
	return nil, fmt.Errorf("%w: no route for %s", device.ErrNotSupported, req.Tag())
}
