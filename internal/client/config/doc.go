// Package config loads the gatekeeper CLI's client settings.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// given with -c or -config, then the -a and -w flags.
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "request_timeout": "10s"
//	}
package config
