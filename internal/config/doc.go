// Package config provides configuration parsing for hookstore.
//
// The configuration is stored in hookstore.json (or hookstore.yaml) in the
// working directory. This package handles loading, saving, validating and
// watching it.
//
// # Configuration File Structure
//
//	{
//	  "logLevel": "info",
//	  "server": {
//	    "host": "localhost",
//	    "port": 8080,
//	    "shutdownTimeout": "5s"
//	  },
//	  "render": { "maxRerenders": 25 },
//	  "effect": { "comparer": "serialized" },
//	  "metrics": { "enabled": true, "namespace": "hookstore" },
//	  "tracing": { "enabled": false },
//	  "snapshot": {
//	    "driver": "dir",
//	    "dir": "data",
//	    "prefix": "counters/"
//	  },
//	  "counters": { "hits": 0 }
//	}
//
// Environment variables named HOOKSTORE_* override file values; see
// ApplyEnv.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Address())
package config
