// Package loader parses the four CSV input files the simulator needs: the
// dense travel-time/distance matrices, the directed edge list, the request
// stream, and the vehicle roster, decoding each row into a typed struct.
// Uses encoding/csv rather than a third-party CSV library since no example
// repo in the corpus pulls one in for this.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jwmdev/ridepool/internal/model"
	"github.com/jwmdev/ridepool/internal/network"
)

// LoadMatrix parses a dense CSV matrix where row i is the vector
// value(i, 0), value(i, 1), ....
func LoadMatrix(r io.Reader) ([][]int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: reading matrix: %w", err)
	}
	out := make([][]int, len(rows))
	for i, row := range rows {
		out[i] = make([]int, len(row))
		for j, cell := range row {
			v, err := strconv.Atoi(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("loader: matrix[%d][%d]=%q: %w", i, j, cell, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

// LoadEdges parses the edge list CSV: lines "origin,dest,length", 1-indexed
// on disk. Returned edges are 0-indexed.
func LoadEdges(r io.Reader) ([]network.Edge, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: reading edge list: %w", err)
	}
	out := make([]network.Edge, 0, len(rows))
	for i, row := range rows {
		from, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
		to, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
		weight, err3 := strconv.Atoi(strings.TrimSpace(row[2]))
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("loader: edge row %d malformed: %q", i, row)
		}
		out = append(out, network.Edge{From: from - 1, To: to - 1, Weight: weight})
	}
	return out, nil
}

// RawRequest is a request file row before its deadlines are derived, since
// deriving them requires the network oracle's t(origin, destination).
type RawRequest struct {
	ID            int
	Origin        int
	Destination   int
	OriginLon     float64
	OriginLat     float64
	DestLon       float64
	DestLat       float64
	RequestedTime time.Duration // offset from midnight
}

// LoadRequests parses the request file: "request_id, origin_node,
// origin_lon, origin_lat, destination_node, destination_lon,
// destination_lat, requested_time_HH:MM:SS", no header, nodes 1-indexed on
// disk.
func LoadRequests(r io.Reader) ([]RawRequest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 8
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: reading requests: %w", err)
	}
	out := make([]RawRequest, 0, len(rows))
	for i, row := range rows {
		id, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
		origin, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
		olon, err3 := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		olat, err4 := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		dest, err5 := strconv.Atoi(strings.TrimSpace(row[4]))
		dlon, err6 := strconv.ParseFloat(strings.TrimSpace(row[5]), 64)
		dlat, err7 := strconv.ParseFloat(strings.TrimSpace(row[6]), 64)
		ts, err8 := ParseClockDuration(strings.TrimSpace(row[7]))
		if err := firstErr(err1, err2, err3, err4, err5, err6, err7, err8); err != nil {
			return nil, fmt.Errorf("loader: request row %d: %w", i, err)
		}
		out = append(out, RawRequest{
			ID: id, Origin: origin - 1, Destination: dest - 1,
			OriginLon: olon, OriginLat: olat, DestLon: dlon, DestLat: dlat,
			RequestedTime: ts,
		})
	}
	return out, nil
}

// RawVehicle is a vehicle file row before CARSIZE override is applied.
type RawVehicle struct {
	DriverID     int
	StartNode    int
	Latitude     float64
	Longitude    float64
	RequestedAt  time.Duration
	Capacity     int
}

// LoadVehicles parses the vehicle file: "driver_id, starting_node,
// latitude, longitude, time_string, capacity", no header, 1-indexed nodes
// on disk. If carSize > 0 it overrides every row's capacity.
func LoadVehicles(r io.Reader, carSize int) ([]RawVehicle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("loader: reading vehicles: %w", err)
	}
	out := make([]RawVehicle, 0, len(rows))
	for i, row := range rows {
		id, err1 := strconv.Atoi(strings.TrimSpace(row[0]))
		node, err2 := strconv.Atoi(strings.TrimSpace(row[1]))
		lat, err3 := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
		lon, err4 := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
		ts, err5 := ParseClockDuration(strings.TrimSpace(row[4]))
		cap, err6 := strconv.Atoi(strings.TrimSpace(row[5]))
		if err := firstErr(err1, err2, err3, err4, err5, err6); err != nil {
			return nil, fmt.Errorf("loader: vehicle row %d: %w", i, err)
		}
		if carSize > 0 {
			cap = carSize
		}
		out = append(out, RawVehicle{
			DriverID: id, StartNode: node - 1, Latitude: lat, Longitude: lon,
			RequestedAt: ts, Capacity: cap,
		})
	}
	return out, nil
}

// BuildRequest derives a model.Request's deadlines from a RawRequest,
// given the oracle's ideal travel time and the configured waiting/detour
// budgets.
func BuildRequest(raw RawRequest, entryTick, idealTravelTime, maxWaiting, maxDetour int) *model.Request {
	return model.NewRequest(model.RequestID(raw.ID), raw.Origin, raw.Destination, entryTick, idealTravelTime, maxWaiting, maxDetour)
}

// BuildVehicle constructs a parked model.Vehicle from a RawVehicle.
func BuildVehicle(raw RawVehicle) *model.Vehicle {
	return model.NewVehicle(raw.DriverID, raw.Capacity, raw.StartNode)
}

// ParseClockDuration parses an "HH:MM:SS" offset-from-midnight string, the
// clock format used for INITIAL_TIME/FINAL_TIME and every request/vehicle
// file's time column.
func ParseClockDuration(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected HH:MM:SS, got %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.Atoi(parts[2])
	if err := firstErr(err1, err2, err3); err != nil {
		return 0, err
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

func firstErr(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
