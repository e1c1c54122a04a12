package evaluator

import (
	"time"

	"github.com/hamed0406/uptimeengine/internal/domain"
)

func (e *Evaluator) trim(s *domain.MonitorState, now time.Time) {
	h := e.History
	if h.LatencyWindow > 0 {
		cutoff := now.Add(-h.LatencyWindow)
		i := 0
		for i < len(s.Latency) && s.Latency[i].At.Before(cutoff) {
			i++
		}
		s.Latency = s.Latency[i:]
	}
	if h.LatencyMax > 0 && len(s.Latency) > h.LatencyMax {
		s.Latency = s.Latency[len(s.Latency)-h.LatencyMax:]
	}
	s.Latency = compact(s.Latency)

	if h.IncidentRetention > 0 {
		cutoff := now.Add(-h.IncidentRetention)
		kept := s.Incidents[:0]
		for _, inc := range s.Incidents {
			if inc.End != nil && inc.End.Before(cutoff) {
				continue
			}
			kept = append(kept, inc)
		}
		s.Incidents = kept
	}
	if h.IncidentMax > 0 {
		for excess := len(s.Incidents) - h.IncidentMax; excess > 0; excess-- {
			idx := oldestClosed(s.Incidents)
			if idx < 0 {
				break
			}
			s.Incidents = append(s.Incidents[:idx], s.Incidents[idx+1:]...)
		}
	}
	if len(s.Incidents) == 0 {
		s.Incidents = nil
	}
}

func oldestClosed(incs []domain.Incident) int {
	for i, inc := range incs {
		if !inc.Ongoing() {
			return i
		}
	}
	return -1
}

// compact drops the backing array once the slice has drifted far from it.
func compact(s []domain.LatencySample) []domain.LatencySample {
	if cap(s) > 2*len(s)+16 {
		return append([]domain.LatencySample(nil), s...)
	}
	return s
}
