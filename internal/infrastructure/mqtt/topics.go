package mqtt

import "fmt"

// TopicPrefixETS is the base for all decoder topics.
const TopicPrefixETS = "graylogic/ets"

// Topics provides builders for decoder MQTT topics.
//
//	topic := mqtt.Topics{}.ProjectSummary("P-0501")
//	// Returns: "graylogic/ets/project/P-0501"
type Topics struct{}

// Status returns the decoder's online/offline topic.
//
// Example: graylogic/ets/status
func (Topics) Status() string {
	return TopicPrefixETS + "/status"
}

// ProjectSummary returns the retained topic holding the latest decode
// summary for a project.
//
// Example: graylogic/ets/project/P-0501
func (Topics) ProjectSummary(projectID string) string {
	return fmt.Sprintf("%s/project/%s", TopicPrefixETS, projectID)
}

// DecodeEvent returns the topic for a single decode run's outcome.
//
// Example: graylogic/ets/decode/5f0c...
func (Topics) DecodeEvent(decodeID string) string {
	return fmt.Sprintf("%s/decode/%s", TopicPrefixETS, decodeID)
}

// AllProjects matches every project summary.
//
// Pattern: graylogic/ets/project/+
func (Topics) AllProjects() string {
	return TopicPrefixETS + "/project/+"
}
