package simulator

// Telemetry tags served by the simulated ARC.
const (
	TelemetryBoardIDHigh     uint8 = 1
	TelemetryBoardIDLow      uint8 = 2
	TelemetryAsicID          uint8 = 3
	TelemetryHarvestingState uint8 = 4
	TelemetryVCore           uint8 = 6
	TelemetryAsicTemperature uint8 = 11
	TelemetryAICLK           uint8 = 14
	TelemetryAXICLK          uint8 = 15
	TelemetryARCCLK          uint8 = 16
	TelemetryTimerHeartbeat  uint8 = 20
)

// telemetryReader is the per-chip view of the ARC telemetry table.
type telemetryReader struct {
	entries map[uint8]uint32
}

func newTelemetryReader(cfg ChipConfig) *telemetryReader {
	return &telemetryReader{entries: map[uint8]uint32{
		TelemetryBoardIDHigh:     uint32(cfg.BoardID >> 32),
		TelemetryBoardIDLow:      uint32(cfg.BoardID),
		TelemetryAsicID:          cfg.AsicID,
		TelemetryHarvestingState: cfg.HarvestingEfuse,
		TelemetryVCore:           cfg.VoltageMV,
		TelemetryAsicTemperature: cfg.AsicTemperature,
		TelemetryAICLK:           cfg.AICLKIdle,
		TelemetryAXICLK:          cfg.AXICLK,
		TelemetryARCCLK:          cfg.ARCCLK,
		TelemetryTimerHeartbeat:  0,
	}}
}

// telemetry returns the chip's reader, creating it on first use. The caller
// must hold c.telemetryMu.
func (c *chip) telemetry() *telemetryReader {
	if c.tel == nil {
		c.tel = newTelemetryReader(c.cfg)
	}
	return c.tel
}

// readTelemetry reads one entry. The heartbeat advances on every read of it.
func (c *chip) readTelemetry(tag uint8) (uint32, bool) {
	c.telemetryMu.Lock()
	defer c.telemetryMu.Unlock()
	tel := c.telemetry()
	v, ok := tel.entries[tag]
	if ok && tag == TelemetryTimerHeartbeat {
		tel.entries[tag] = v + 1
	}
	return v, ok
}

func (c *chip) setTelemetry(tag uint8, v uint32) {
	c.telemetryMu.Lock()
	defer c.telemetryMu.Unlock()
	c.telemetry().entries[tag] = v
}
