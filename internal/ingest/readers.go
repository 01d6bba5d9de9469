package ingest

import (
	"io"
	"sort"

	"github.com/banshee-data/laptrace/internal/trace/l1samples"
)

// ReadPositions reads driver,session_time,date,x,y,z,status rows. Rows
// are sorted by time per driver; a missing status counts as on track.
func ReadPositions(name string, r io.Reader) (l1samples.PositionStreams, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	var idx [4]int
	for i, aliases := range [][]string{
		{"driver", "drivernumber"}, {"session_time", "sessiontime", "time"},
		{"x"}, {"y"},
	} {
		if idx[i], err = t.require(aliases...); err != nil {
			return nil, err
		}
	}
	iDate, iZ, iStatus := t.column("date"), t.column("z"), t.column("status")

	out := l1samples.PositionStreams{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var s l1samples.PositionSample
		at, err := parseDuration(field(rec, idx[1]))
		if err != nil {
			return nil, t.errorf("session_time", err)
		}
		if at == nil {
			continue
		}
		s.Time = *at
		if s.Date, err = parseDate(field(rec, iDate)); err != nil {
			return nil, t.errorf("date", err)
		}
		if s.X, err = parseFloat(field(rec, idx[2])); err != nil {
			return nil, t.errorf("x", err)
		}
		if s.Y, err = parseFloat(field(rec, idx[3])); err != nil {
			return nil, t.errorf("y", err)
		}
		if s.Z, err = parseFloat(field(rec, iZ)); err != nil {
			return nil, t.errorf("z", err)
		}
		s.Status = l1samples.StatusOnTrack
		if v := field(rec, iStatus); !isMissing(v) {
			if s.Status, err = l1samples.ParseStatus(v); err != nil {
				return nil, t.errorf("status", err)
			}
		}
		d := field(rec, idx[0])
		out[d] = append(out[d], s)
	}
	for _, samples := range out {
		sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
	}
	return out, nil
}

// ReadCar reads driver,session_time,date,speed,rpm,ngear,throttle,brake,drs
// rows sorted by time per driver. Only driver, session_time and speed are
// required.
func ReadCar(name string, r io.Reader) (l1samples.CarStreams, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	iDriver, err := t.require("driver", "drivernumber")
	if err != nil {
		return nil, err
	}
	iTime, err := t.require("session_time", "sessiontime", "time")
	if err != nil {
		return nil, err
	}
	iSpeed, err := t.require("speed")
	if err != nil {
		return nil, err
	}
	iDate, iRPM, iGear := t.column("date"), t.column("rpm"), t.column("ngear", "gear")
	iThrottle, iBrake, iDRS := t.column("throttle"), t.column("brake"), t.column("drs")

	out := l1samples.CarStreams{}
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var s l1samples.CarSample
		at, err := parseDuration(field(rec, iTime))
		if err != nil {
			return nil, t.errorf("session_time", err)
		}
		if at == nil {
			continue
		}
		s.Time = *at
		if s.Date, err = parseDate(field(rec, iDate)); err != nil {
			return nil, t.errorf("date", err)
		}
		if s.Speed, err = parseFloat(field(rec, iSpeed)); err != nil {
			return nil, t.errorf("speed", err)
		}
		if s.RPM, err = parseFloat(field(rec, iRPM)); err != nil {
			return nil, t.errorf("rpm", err)
		}
		if s.Gear, _, err = parseInt(field(rec, iGear)); err != nil {
			return nil, t.errorf("ngear", err)
		}
		if s.Throttle, err = parseFloat(field(rec, iThrottle)); err != nil {
			return nil, t.errorf("throttle", err)
		}
		if s.Brake, err = parseBool(field(rec, iBrake)); err != nil {
			return nil, t.errorf("brake", err)
		}
		if s.DRS, _, err = parseInt(field(rec, iDRS)); err != nil {
			return nil, t.errorf("drs", err)
		}
		d := field(rec, iDriver)
		out[d] = append(out[d], s)
	}
	for _, samples := range out {
		sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
	}
	return out, nil
}

// ReadLaps reads driver,lap_number,time,lap_time,pit_in_time,pit_out_time
// rows. Empty cells become nil fields.
func ReadLaps(name string, r io.Reader) ([]l1samples.LapRecord, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	iDriver, err := t.require("driver", "drivernumber")
	if err != nil {
		return nil, err
	}
	iTime, err := t.require("time")
	if err != nil {
		return nil, err
	}
	iLapTime, err := t.require("lap_time", "laptime")
	if err != nil {
		return nil, err
	}
	iNumber := t.column("lap_number", "lapnumber")
	iPitIn, iPitOut := t.column("pit_in_time", "pitintime"), t.column("pit_out_time", "pitouttime")

	var out []l1samples.LapRecord
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lr := l1samples.LapRecord{Driver: field(rec, iDriver)}
		n, ok, err := parseInt(field(rec, iNumber))
		if err != nil {
			return nil, t.errorf("lap_number", err)
		}
		if ok {
			lr.LapNumber = &n
		}
		if lr.Time, err = parseDuration(field(rec, iTime)); err != nil {
			return nil, t.errorf("time", err)
		}
		if lr.LapTime, err = parseDuration(field(rec, iLapTime)); err != nil {
			return nil, t.errorf("lap_time", err)
		}
		if lr.PitInTime, err = parseDuration(field(rec, iPitIn)); err != nil {
			return nil, t.errorf("pit_in_time", err)
		}
		if lr.PitOutTime, err = parseDuration(field(rec, iPitOut)); err != nil {
			return nil, t.errorf("pit_out_time", err)
		}
		out = append(out, lr)
	}
	return out, nil
}

// ReadTrackStatus reads session_time,status rows in time order.
func ReadTrackStatus(name string, r io.Reader) ([]l1samples.TrackStatusEvent, error) {
	t, err := newTable(name, r)
	if err != nil {
		return nil, err
	}
	iTime, err := t.require("session_time", "sessiontime", "time")
	if err != nil {
		return nil, err
	}
	iStatus, err := t.require("status")
	if err != nil {
		return nil, err
	}

	var out []l1samples.TrackStatusEvent
	for {
		rec, err := t.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		at, err := parseDuration(field(rec, iTime))
		if err != nil {
			return nil, t.errorf("session_time", err)
		}
		status, ok, err := parseInt(field(rec, iStatus))
		if err != nil {
			return nil, t.errorf("status", err)
		}
		if at == nil || !ok {
			continue
		}
		out = append(out, l1samples.TrackStatusEvent{Time: *at, Status: status})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}
