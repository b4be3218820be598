package cnst

const (
	// AppName is the name of the application
	AppName = "syncwave-crm"
	// CommandName is the name of the apiserver binary
	CommandName = "apiserver"
)
