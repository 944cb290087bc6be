// Package protocols holds top-level constants shared by every
// component: component names (used as logrus fields), canonical and
// debug-mode port numbers, and filesystem layout under the data
// directory.
package protocols

// Component names, used as the logrus "component" field on every
// per-subsystem logger, following the same convention as the
// teleport.Component helper this package was adapted from.
const (
	ComponentGemini  = "gemini"
	ComponentGopher  = "gopher"
	ComponentFinger  = "finger"
	ComponentTelnet  = "telnet"
	ComponentSSH     = "ssh"
	ComponentQOTD    = "qotd"
	ComponentHTTP    = "http"
	ComponentService = "service"
	ComponentTUI     = "tui"
)

// Hostname is the canonical hostname this server identifies itself as
// in Gemini host validation and in the TUI/formatter banners.
const Hostname = "matdoes.dev"

// Canonical, production port numbers.
const (
	GeminiPort = 1965
	GopherPort = 70
	FingerPort = 79
	TelnetPort = 23
	SSHPort    = 22
	QOTDPort   = 17
	HTTPPort   = 6758
)

// Debug-mode port numbers. When Config.Debug is set every listener
// binds its debug port instead of its canonical one, since most of
// the canonical ports are privileged and binding them is inconvenient
// during development.
const (
	DebugGeminiPort = 1965
	DebugGopherPort = 7070
	DebugFingerPort = 7979
	DebugTelnetPort = 2323
	DebugSSHPort    = 2222
	DebugQOTDPort   = 1717
	DebugHTTPPort   = 8080
)

// Filesystem layout under the data directory.
const (
	SiteDataCacheFile  = "cache.json"
	SSHHostKeyFile     = "ssh/keypair.bin"
	GeminiCertPubFile  = "gemini/certs/public.der"
	GeminiCertKeyFile  = "gemini/certs/private.der"
	QOTDMessageFile    = "qotd/message.txt"
	QOTDSecretFile     = "qotd/secret.txt"
	MediaDir           = "media"
)
