// Package config handles loading and validating Shoplane Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the JWT secret in particular) should be set via
//     environment variables, not committed to config files
//   - The config file should have restricted permissions (0600)
//   - Startup fails fast when the JWT secret is missing or too short
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
