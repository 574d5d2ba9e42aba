package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDecode is the measurement every decode run is written to.
const MeasurementDecode = "ets_decode"

// DecodeRun summarises one decode for the time-series store.
type DecodeRun struct {
	ProjectID string
	DecodeID  string
	CacheHit  bool
	Duration  time.Duration
	Finished  time.Time

	Areas          int
	Lines          int
	Devices        int
	GroupAddresses int
	Spaces         int

	Products           int
	Hardware2Programs  int
	ComObjects         int
	Datapoints         int
	UnresolvedWarnings int
}

// WriteDecodeRun queues a point describing run. It is a no-op after Close.
func (c *Client) WriteDecodeRun(run DecodeRun) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(decodePoint(run))
}

// decodePoint keeps the tag set small: project and cache outcome only.
// The decode ID is a field so it doesn't blow up series cardinality.
func decodePoint(run DecodeRun) *write.Point {
	ts := run.Finished
	if ts.IsZero() {
		ts = time.Now()
	}

	return write.NewPoint(
		MeasurementDecode,
		map[string]string{
			"project_id": run.ProjectID,
			"cache_hit":  strconv.FormatBool(run.CacheHit),
		},
		map[string]interface{}{
			"decode_id":           run.DecodeID,
			"duration_ms":         run.Duration.Milliseconds(),
			"areas":               run.Areas,
			"lines":               run.Lines,
			"devices":             run.Devices,
			"group_addresses":     run.GroupAddresses,
			"spaces":              run.Spaces,
			"products":            run.Products,
			"hardware2programs":   run.Hardware2Programs,
			"com_objects":         run.ComObjects,
			"datapoints":          run.Datapoints,
			"unresolved_warnings": run.UnresolvedWarnings,
		},
		ts,
	)
}
