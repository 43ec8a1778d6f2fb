package engine

import (
	"math"
	"sort"

	"github.com/miditap/miditap/internal/pkg/midi"
)

// ExpressionStats summarizes a performance from the completed note
// history. The active set contributes only its count.
type ExpressionStats struct {
	NoteCount   int
	ActiveNotes int

	AverageVelocity float64
	VelocityMin     float64
	VelocityMax     float64

	AverageDuration float64
	ShortestNote    float64
	LongestNote     float64
	NoteDensity     float64 // completed notes per second of played span

	MaxPitchBend    float64
	AveragePressure float64
	AverageTimbre   float64

	Polyphony int // maximum simultaneously sounding notes

	Scale string
	Key   string

	VelocityHistogram [8]int
}

type sweepPoint struct {
	time  float64
	start bool
}

// Stats computes the summary. With an empty history only the counters
// carry meaning and the min/max fields stay at their fold identities.
func (tr *Tracker) Stats() ExpressionStats {
	stats := ExpressionStats{
		NoteCount:    len(tr.history),
		ActiveNotes:  len(tr.active),
		VelocityMin:  1.0,
		ShortestNote: math.MaxFloat64,
	}

	if len(tr.history) == 0 {
		return stats
	}

	var totalVelocity, totalDuration, totalPressure, totalTimbre float64
	var histogram [12]int

	points := make([]sweepPoint, 0, len(tr.history)*2)
	spanStart := math.MaxFloat64
	spanEnd := 0.0

	for i := range tr.history {
		note := &tr.history[i]

		totalVelocity += note.Velocity
		stats.VelocityMin = math.Min(stats.VelocityMin, note.Velocity)
		stats.VelocityMax = math.Max(stats.VelocityMax, note.Velocity)

		duration := note.LastUpdate - note.StartTime
		totalDuration += duration
		stats.ShortestNote = math.Min(stats.ShortestNote, duration)
		stats.LongestNote = math.Max(stats.LongestNote, duration)

		points = append(points, sweepPoint{note.StartTime, true}, sweepPoint{note.LastUpdate, false})
		spanStart = math.Min(spanStart, note.StartTime)
		spanEnd = math.Max(spanEnd, note.LastUpdate)

		totalPressure += note.Pressure
		totalTimbre += note.Timbre
		stats.MaxPitchBend = math.Max(stats.MaxPitchBend, math.Abs(note.PitchBend))

		histogram[note.Note%12]++

		bin := int(note.Velocity * 8)
		if bin > 7 {
			bin = 7
		}
		stats.VelocityHistogram[bin]++
	}

	// ends sort before starts at equal timestamps so an instant
	// retrigger counts as one voice, not two
	sort.Slice(points, func(i, j int) bool {
		if points[i].time == points[j].time {
			return !points[i].start && points[j].start
		}
		return points[i].time < points[j].time
	})

	active := 0
	for _, p := range points {
		if p.start {
			active++
			if active > stats.Polyphony {
				stats.Polyphony = active
			}
		} else {
			active--
		}
	}

	count := float64(len(tr.history))
	stats.AverageVelocity = totalVelocity / count
	stats.AverageDuration = totalDuration / count
	stats.AveragePressure = totalPressure / count
	stats.AverageTimbre = totalTimbre / count

	if span := spanEnd - spanStart; span > 0 {
		stats.NoteDensity = count / span
	}

	stats.Scale = detectScale(histogram)
	stats.Key = detectKey(histogram)

	return stats
}

// detectScale matches occurring pitch classes against the step
// patterns of the major and minor scales. Crude, a tie reads as
// unknown.
func detectScale(histogram [12]int) string {
	majorPattern := []int{2, 2, 1, 2, 2, 2, 1}
	minorPattern := []int{2, 1, 2, 2, 1, 2, 2}

	majorMatch, minorMatch := 0, 0
	for class := 0; class < 12; class++ {
		if histogram[class] == 0 {
			continue
		}
		if containsStep(majorPattern, class) {
			majorMatch++
		}
		if containsStep(minorPattern, class) {
			minorMatch++
		}
	}

	if majorMatch > minorMatch {
		return "Major"
	}
	if minorMatch > majorMatch {
		return "Minor"
	}
	return "Unknown"
}

// detectKey takes the most frequent pitch class as the key, the first
// one wins a tie.
func detectKey(histogram [12]int) string {
	maxCount, keyClass := 0, 0
	for class, count := range histogram {
		if count > maxCount {
			maxCount = count
			keyClass = class
		}
	}
	return midi.PitchClassName(uint8(keyClass))
}

func containsStep(pattern []int, v int) bool {
	for _, p := range pattern {
		if p == v {
			return true
		}
	}
	return false
}
