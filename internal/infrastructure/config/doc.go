// Package config handles loading and validating the ETS decoder configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The ETS archive passphrase is never part of the configuration; it is
//     read from GRAYLOGIC_ETS_PASSWORD by the command shell
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/etsdecode.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Staging.Root)
package config
