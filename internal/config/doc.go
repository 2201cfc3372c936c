// Package config loads the qwenauth configuration.
//
// Configuration is read from config.yaml in a single directory, by default
// ~/.config/qwenauth. The file is optional; every field has a default and
// the file only needs to list what it overrides:
//
//	credentialsPath: ~/.qwen/oauth_creds.json
//	listen: 127.0.0.1:8788
//	debug: false
//	governor:
//	  minInterval: 1s
//	  jitterMin: 500ms
//	  jitterMax: 1500ms
//
// OAuth endpoints and the client ID are fixed and cannot be configured.
package config
