package app

const (
	Name           = "social-app"
	SourceURL      = "https://github.com/hipstersmoothie/social-app"
	ConfigFilename = "config.json"
	DBFilename     = "inbox.db"
	LogFilename    = "inbox.log"
)
