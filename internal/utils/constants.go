package utils

const (
	// ConfigFileName is the name of local and global configuration files.
	ConfigFileName = "config.yaml"
	// ConfigFileType is the viper format of configuration files.
	ConfigFileType = "yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".marginal"

	// LoggerInitializationFailedMessageFormat reports a logger construction failure.
	LoggerInitializationFailedMessageFormat = "initialize logger: %w"
	// ApplicationExecutionFailedMessage prefixes fatal command failures.
	ApplicationExecutionFailedMessage = "marginal failed"
)
