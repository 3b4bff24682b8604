package version

// Current defines the application version.
// It defaults to "dev" but is overwritten by the Makefile using -ldflags.
var Current = "dev"

const AppName = "SnipeSync"

// UserAgent is sent on every registry request and appended to AWS SDK requests.
func UserAgent() string {
	return AppName + "/" + Current
}
