// Package mqtt publishes ETS decode results onto the Gray Logic MQTT bus.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publication of decoded project summaries
//   - Last Will and Testament (LWT) for the decoder's status topic
//
// # Topics
//
//	graylogic/ets/status                   decoder online/offline (retained)
//	graylogic/ets/project/{project_id}     latest decode summary (retained)
//	graylogic/ets/decode/{decode_id}       per-run result event
//
// # Security Considerations
//
//   - TLS should be enabled outside local development (cfg.Broker.TLS=true)
//   - Summaries never carry the archive passphrase or device serial numbers
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.ProjectSummary(projectID), summary, true)
package mqtt
