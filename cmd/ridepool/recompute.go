package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/urfave/cli/v2"
)

// geoNode is one node of the ride-pooling network's node file: an id plus
// the latitude/longitude used only to (re)derive edge distances, never
// consulted by the tick core itself (which reads the precomputed dense
// matrices instead).
type geoNode struct {
	ID  int     `json:"id"`
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// geoEdge is one directed edge whose DistanceKM this command recomputes in
// place from its endpoints' coordinates.
type geoEdge struct {
	From       int     `json:"from"`
	To         int     `json:"to"`
	DistanceKM float64 `json:"distance_km"`
}

type nodeFile struct {
	Nodes []geoNode `json:"nodes"`
	Edges []geoEdge `json:"edges"`
}

// haversine returns the great-circle distance in km between two lat/lng
// pairs, unchanged from tools/recompute_distances.go.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0088 // mean Earth radius km
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}

// recomputeDistancesCommand adapts tools/recompute_distances.go from a bus
// route's stop-to-stop chain onto an arbitrary directed node graph: every
// edge's distance is recomputed from its endpoints' coordinates rather than
// from a fixed sequential stop order, since the ride-pooling network has no
// single route to walk.
func recomputeDistancesCommand() *cli.Command {
	return &cli.Command{
		Name:      "recompute-distances",
		Usage:     "recompute a node file's edge distances via haversine and rewrite it in place",
		ArgsUsage: "<node-file.json>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("usage: ridepool recompute-distances <node-file.json>")
			}
			return recomputeDistances(c.Args().Get(0))
		},
	}
}

func recomputeDistances(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("recompute-distances: reading %s: %w", path, err)
	}
	var nf nodeFile
	if err := json.Unmarshal(b, &nf); err != nil {
		return fmt.Errorf("recompute-distances: parsing %s: %w", path, err)
	}

	byID := make(map[int]geoNode, len(nf.Nodes))
	for _, n := range nf.Nodes {
		byID[n.ID] = n
	}

	for i, e := range nf.Edges {
		from, ok1 := byID[e.From]
		to, ok2 := byID[e.To]
		if !ok1 || !ok2 {
			return fmt.Errorf("recompute-distances: edge %d references unknown node (%d -> %d)", i, e.From, e.To)
		}
		nf.Edges[i].DistanceKM = math.Round(haversine(from.Lat, from.Lng, to.Lat, to.Lng)*1000) / 1000
	}

	out, err := json.MarshalIndent(nf, "", "  ")
	if err != nil {
		return fmt.Errorf("recompute-distances: marshaling: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("recompute-distances: writing %s: %w", path, err)
	}
	fmt.Printf("recompute-distances: updated %d edges in %s\n", len(nf.Edges), path)
	return nil
}
