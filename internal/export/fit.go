package export

import (
	"fmt"
	"io"
	"math"
	"time"

	"backend-esterun/internal/tracking"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
)

const degreesToSemicircles = 2147483648.0 / 180.0

func semicircles(deg float64) int32 {
	return int32(math.Round(deg * degreesToSemicircles))
}

func sportOf(kind tracking.Kind) typedef.Sport {
	switch kind {
	case tracking.KindCycling:
		return typedef.SportCycling
	case tracking.KindWalking:
		return typedef.SportWalking
	default:
		return typedef.SportRunning
	}
}

// FIT writes the activity as a FIT activity file: file id, one record per
// route point with cumulative distance, then the closing event, lap and session.
func FIT(w io.Writer, rec tracking.ActivityRecord) error {
	times := timeline(rec)
	end := rec.StartTime.Add(time.Duration(rec.DurationS) * time.Second)

	fileID := mesgdef.FileId{
		Type:         typedef.FileActivity,
		Manufacturer: typedef.ManufacturerDevelopment,
		TimeCreated:  rec.StartTime,
	}
	fit := proto.FIT{}
	fit.Messages = append(fit.Messages, fileID.ToMesg(nil))

	var distance float64
	for i, p := range rec.Route {
		if i > 0 {
			distance += tracking.AddSegment(rec.Route[i-1], p)
		}
		record := mesgdef.Record{
			Timestamp:    times[i],
			PositionLat:  semicircles(p.Lat),
			PositionLong: semicircles(p.Lng),
			Distance:     uint32(math.Round(distance * 100)),
		}
		fit.Messages = append(fit.Messages, record.ToMesg(nil))
	}

	stop := mesgdef.Event{
		Timestamp: end,
		Event:     typedef.EventTimer,
		EventType: typedef.EventTypeStopAll,
	}
	fit.Messages = append(fit.Messages, stop.ToMesg(nil))

	elapsed := uint32(rec.DurationS * 1000)
	total := uint32(math.Round(rec.DistanceM * 100))
	lap := mesgdef.Lap{
		Timestamp:        end,
		StartTime:        rec.StartTime,
		TotalElapsedTime: elapsed,
		TotalTimerTime:   elapsed,
		TotalDistance:    total,
		Event:            typedef.EventLap,
		EventType:        typedef.EventTypeStop,
	}
	fit.Messages = append(fit.Messages, lap.ToMesg(nil))

	session := mesgdef.Session{
		Timestamp:        end,
		StartTime:        rec.StartTime,
		TotalElapsedTime: elapsed,
		TotalTimerTime:   elapsed,
		TotalDistance:    total,
		TotalCalories:    uint16(math.Min(math.Round(rec.Calories), math.MaxUint16)),
		Sport:            sportOf(rec.Kind),
		SubSport:         typedef.SubSportGeneric,
		Event:            typedef.EventSession,
		EventType:        typedef.EventTypeStop,
		Trigger:          typedef.SessionTriggerActivityEnd,
	}
	fit.Messages = append(fit.Messages, session.ToMesg(nil))

	if err := encoder.New(w).Encode(&fit); err != nil {
		return fmt.Errorf("encode fit: %w", err)
	}
	return nil
}
