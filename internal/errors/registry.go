package errors

// Template defines a registered error code.
type Template struct {
	Category Category
	Message  string
}

var registry = map[string]Template{
	// Configuration (R100-R119)
	"R100": {CategoryConfig, "Configuration file not found"},
	"R101": {CategoryConfig, "Invalid configuration"},
	"R102": {CategoryConfig, "Cannot read configuration"},
	"R103": {CategoryConfig, "Invalid YAML"},

	// Command line (R120-R139)
	"R120": {CategoryCLI, "Invalid flag value"},
	"R121": {CategoryCLI, "Listener failed"},

	// Protocol (R140-R159)
	"R140": {CategoryProtocol, "Handshake rejected"},
	"R141": {CategoryProtocol, "Connection lost"},

	// Recording (R160-R179)
	"R160": {CategoryRecording, "Recording storage unavailable"},
	"R161": {CategoryRecording, "Recording is corrupt"},
}

// Codes returns every registered code.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
