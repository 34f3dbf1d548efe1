// Package config loads remoteui.yaml, the configuration file of the
// remoteui command.
//
// Values of the form ${VAR} or ${VAR:-default} are expanded from the
// environment before parsing. Durations are strings such as "2s" or "1m".
// Zero values fall back to the library defaults, so an empty file is a
// valid configuration.
//
//	listen: ":8080"
//	tick_rate: 30
//	session:
//	  send_timeout: 2s
//	recording:
//	  backend: s3
//	  bucket: ${RECORDING_BUCKET}
package config
