// FILE: logpulse/src/cmd/logpulse/help.go
package main

const helpText = `LogPulse: leveled logging with rotation, alerts and a live dashboard.

Usage:
  logpulse [command] [options] [-- config overrides]

Commands:
  auth                     Generate credentials, signing keys and bearer tokens
  version                  Display version information
  help                     Display this help message

Application Control:
  -config <path>           Path to configuration file (default: ~/.config/logpulse.toml)
  -version                 Display version information and exit
  -quiet                   Suppress all console output, including errors
  -dump-config             Print the effective configuration with secrets masked

Runtime Behavior:
  -stdin                   Ingest lines from standard input, "[LEVEL] message"
  -config-auto-reload      Apply config file changes without restart
  -disable-status-reporter Disable the periodic status reporter

Operational Logging:
  -log-output <mode>       file, stdout, stderr, both, none
  -log-level <level>       debug, info, warn, error
  -log-dir <path>          Directory for file output
  -log-console <target>    stdout, stderr

Config Overrides:
  Arguments after "--" override config keys, e.g.
    logpulse -stdin -- --server.start_web_server=true --server.port=9100

Environment Variables:
  LOGPULSE_CONFIG_FILE     Config file path
  LOGPULSE_CONFIG_DIR      Config directory
  LOGPULSE_<KEY>           Any config key, e.g. LOGPULSE_SERVER_PORT=9100

Signals:
  SIGHUP, SIGUSR1          Reload configuration
  SIGINT, SIGTERM          Graceful shutdown
`
