package logging

import (
	"log"
	"sync"
	"time"
)

// CycleLog tracks a single poll cycle from fetch to delivery
type CycleLog struct {
	CycleID   uint64
	StartTime time.Time
	Fetched   int
	Forwarded int
	Skipped   int
	mu        sync.Mutex
}

// CycleLogger manages logging for poll cycles
type CycleLogger struct {
	cycles sync.Map // map[uint64]*CycleLog
}

// NewCycleLogger creates a new logger instance
func NewCycleLogger() *CycleLogger {
	return &CycleLogger{}
}

// StartCycle begins tracking a new poll cycle
func (l *CycleLogger) StartCycle(cycleID uint64, fetched int) {
	cycle := &CycleLog{
		CycleID:   cycleID,
		StartTime: time.Now(),
		Fetched:   fetched,
	}
	l.cycles.Store(cycleID, cycle)

	if fetched > 0 {
		log.Printf("[Cycle:%d] START - %d new message(s) to process", cycleID, fetched)
	}
}

// LogForwarded records one delivered message within a cycle
func (l *CycleLogger) LogForwarded(cycleID uint64, messageID string) {
	value, ok := l.cycles.Load(cycleID)
	if !ok {
		log.Printf("[Cycle:%d] WARNING: cycle not found for forward", cycleID)
		return
	}

	cycle := value.(*CycleLog)
	cycle.mu.Lock()
	cycle.Forwarded++
	forwarded := cycle.Forwarded
	cycle.mu.Unlock()

	log.Printf("[Cycle:%d] FORWARDED %s (%d/%d)", cycleID, messageID, forwarded, cycle.Fetched)
}

// LogSkipped records one message that was skipped as already processed
func (l *CycleLogger) LogSkipped(cycleID uint64, messageID string) {
	value, ok := l.cycles.Load(cycleID)
	if !ok {
		return
	}

	cycle := value.(*CycleLog)
	cycle.mu.Lock()
	cycle.Skipped++
	cycle.mu.Unlock()

	log.Printf("[Cycle:%d] SKIPPED %s already processed", cycleID, messageID)
}

// EndCycle finalizes a cycle with success/failure status
func (l *CycleLogger) EndCycle(cycleID uint64, success bool, errorMsg string) {
	value, ok := l.cycles.Load(cycleID)
	if !ok {
		log.Printf("[Cycle:%d] WARNING: cycle not found for end", cycleID)
		return
	}

	cycle := value.(*CycleLog)
	cycle.mu.Lock()
	elapsed := time.Since(cycle.StartTime)
	forwarded := cycle.Forwarded
	skipped := cycle.Skipped
	cycle.mu.Unlock()

	if success {
		if cycle.Fetched > 0 {
			log.Printf("[Cycle:%d] DONE - forwarded=%d skipped=%d duration=%v",
				cycleID, forwarded, skipped, elapsed.Round(time.Millisecond))
		}
	} else {
		log.Printf("[Cycle:%d] FAILED - Duration=%v Error: %s",
			cycleID, elapsed.Round(time.Millisecond), errorMsg)
	}

	l.cycles.Delete(cycleID)
}

// GetActiveCycles returns the count of cycles currently in flight
func (l *CycleLogger) GetActiveCycles() int {
	count := 0
	l.cycles.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}
