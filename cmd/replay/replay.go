package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"backend-esterun/internal/export"
	"backend-esterun/internal/tracking"
)

var errNoSamples = errors.New("no samples")

// loadSamples reads a recorded sample file. CSV rows are
// lat,lng,accuracy,timestamp (RFC 3339); a header row is skipped. GPX files
// carry no accuracy, so every point gets gpxAccuracy.
func loadSamples(path string, gpxAccuracy float64) ([]tracking.GeoSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".gpx") {
		return gpxSamples(f, gpxAccuracy)
	}
	return csvSamples(f)
}

func csvSamples(r io.Reader) ([]tracking.GeoSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	cr.TrimLeadingSpace = true

	var out []tracking.GeoSample
	for line := 1; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(row[0], "lat") {
			continue
		}

		var nums [3]float64
		for i := range nums {
			if nums[i], err = strconv.ParseFloat(row[i], 64); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		ts, err := time.Parse(time.RFC3339, row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, tracking.GeoSample{Lat: nums[0], Lng: nums[1], Accuracy: nums[2], Timestamp: ts})
	}
	if len(out) == 0 {
		return nil, errNoSamples
	}
	return out, nil
}

func gpxSamples(r io.Reader, accuracy float64) ([]tracking.GeoSample, error) {
	points, err := export.ReadGPX(r)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, errNoSamples
	}

	out := make([]tracking.GeoSample, 0, len(points))
	var last time.Time
	for _, p := range points {
		ts := p.Time
		if ts.IsZero() {
			// untimed tracks replay at one point per second
			ts = last.Add(time.Second)
			if last.IsZero() {
				ts = time.Unix(0, 0).UTC()
			}
		}
		last = ts
		out = append(out, tracking.GeoSample{Lat: p.Lat, Lng: p.Lng, Accuracy: accuracy, Timestamp: ts})
	}
	return out, nil
}

// replay drives a session through the samples in order, ticking the clock
// once per whole second of sample time spent tracking, and stops it after
// the last one.
func replay(samples []tracking.GeoSample, kind tracking.Kind, params tracking.Params) (tracking.ActivityRecord, error) {
	if len(samples) == 0 {
		return tracking.ActivityRecord{}, errNoSamples
	}

	current := samples[0].Timestamp
	session := tracking.NewSession("replay", "replay", kind, params, func() time.Time { return current })
	if err := session.Start(); err != nil {
		return tracking.ActivityRecord{}, err
	}

	var tickedTo time.Time
	for _, sample := range samples {
		current = sample.Timestamp
		if session.State() == tracking.StateTracking {
			for next := tickedTo.Add(time.Second); !next.After(current); next = next.Add(time.Second) {
				session.Tick()
				tickedTo = next
			}
		}

		session.HandleSample(sample)
		if params.RequireBegin && session.State() == tracking.StateAcquiring && session.Locked() {
			if err := session.Begin(); err != nil {
				return tracking.ActivityRecord{}, err
			}
		}
		if session.State() == tracking.StateTracking && tickedTo.IsZero() {
			tickedTo = current
		}
	}
	return session.Stop()
}
