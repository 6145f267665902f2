package logging

import "github.com/sirupsen/logrus"

// BaseFields builds the action + config path fields shared by CLI entry
// points.
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields provides the per-request fields reused by the HTTP handlers.
func RequestFields(action, requestID, crate, version string) logrus.Fields {
	fields := logrus.Fields{
		"action":     action,
		"request_id": requestID,
	}
	if crate != "" {
		fields["crate"] = crate
	}
	if version != "" {
		fields["version"] = version
	}
	return fields
}
