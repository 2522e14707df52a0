// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and GRAPHBOX_* environment variables. It
// covers the REST server, the optional MCP transport, the code sandbox
// policy (timeout, allow-list, denylist), storage and logging.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Sandbox timeout: %s\n", cfg.GetTimeout())
package config
