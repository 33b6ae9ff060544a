package system

import (
	"github.com/l1jgo/eventcopy/internal/core/event"
	"go.uber.org/zap"
)

// CopyStats counts copy pipeline events delivered by the bus.
type CopyStats struct {
	Materialized int
	Reused       int
	Evicted      int
	Failed       int
	Erased       int
	Superseded   int
	Stalled      int
	Entered      int
	Exited       int
	log          *zap.Logger
}

// NewCopyStats creates the collector and subscribes it to bus.
func NewCopyStats(bus *event.Bus, log *zap.Logger) *CopyStats {
	s := &CopyStats{log: log}
	event.Subscribe(bus, func(e event.CopyMaterialized) {
		s.Materialized++
		if e.Reused {
			s.Reused++
		}
		if e.Evicted {
			s.Evicted++
		}
	})
	event.Subscribe(bus, func(event.CopyFailed) { s.Failed++ })
	event.Subscribe(bus, func(event.CopyErased) { s.Erased++ })
	event.Subscribe(bus, func(e event.LoadSuperseded) {
		s.Superseded++
		s.log.Warn("地圖載入被取代，結果遺失",
			zap.Int32("map_id", e.MapID), zap.Int32("by", e.By))
	})
	event.Subscribe(bus, func(event.LoadStalled) { s.Stalled++ })
	event.Subscribe(bus, func(event.MapEntered) { s.Entered++ })
	event.Subscribe(bus, func(event.MapExited) { s.Exited++ })
	return s
}

// Log writes a summary line.
func (s *CopyStats) Log() {
	s.log.Info("複製統計",
		zap.Int("materialized", s.Materialized),
		zap.Int("reused", s.Reused),
		zap.Int("evicted", s.Evicted),
		zap.Int("failed", s.Failed),
		zap.Int("erased", s.Erased),
		zap.Int("superseded", s.Superseded),
		zap.Int("stalled", s.Stalled),
		zap.Int("maps_entered", s.Entered))
}
