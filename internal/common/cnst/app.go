package cnst

const (
	AppName     = "siogate"
	CommandName = "siogate"
)
