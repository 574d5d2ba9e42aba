// Package influxdb records ETS decode runs as time-series points.
//
// Every decode writes one point to the "ets_decode" measurement, tagged by
// project and cache outcome, with the entity counts and the elapsed time
// as fields. Writes are batched by the client and flushed on Close.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDecodeRun(run)
package influxdb
