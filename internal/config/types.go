package config

// Config is the top-level configuration structure for dlchat.
type Config struct {
	Entra      EntraConfig      `yaml:"entra"`
	DirectLine DirectLineConfig `yaml:"directline"`
	Serve      ServeConfig      `yaml:"serve"`
	LogLevel   string           `yaml:"logLevel,omitempty"` // error, warn, info, debug (default: warn)
}

// EntraConfig identifies the Entra ID app registration used for user sign-in.
type EntraConfig struct {
	TenantID     string   `yaml:"tenantId,omitempty"`
	ClientID     string   `yaml:"clientId,omitempty"`
	ClientSecret string   `yaml:"clientSecret,omitempty"` // Prefer the ENTRA_CLIENT_SECRET env var over the file
	Authority    string   `yaml:"authority,omitempty"`    // Override for sovereign clouds or testing
	Scopes       []string `yaml:"scopes,omitempty"`       // Resource scopes only
	CallbackPort int      `yaml:"callbackPort,omitempty"` // 0 picks a free port
}

// DirectLineConfig holds the Direct Line channel settings.
type DirectLineConfig struct {
	Secret   string `yaml:"secret,omitempty"`   // Prefer the DIRECT_LINE_SECRET env var over the file
	Endpoint string `yaml:"endpoint,omitempty"` // Default: https://directline.botframework.com
	UserID   string `yaml:"userId,omitempty"`   // Default: generated with the dl_ prefix
	BotName  string `yaml:"botName,omitempty"`  // Display name in the chat transcript
}

// ServeConfig configures the local web chat server.
type ServeConfig struct {
	Port int    `yaml:"port,omitempty"` // Default: 8480
	Host string `yaml:"host,omitempty"` // Default: localhost
}
