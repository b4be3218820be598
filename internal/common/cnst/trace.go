package cnst

// Tracer names used across the services
const (
	// TraceAPIServer is the tracer name for the HTTP layer
	TraceAPIServer = "syncwave-crm/apiserver"
	// TraceDispatch is the tracer name for the dispatch orchestrator
	TraceDispatch = "syncwave-crm/dispatch"
)

// Common span names
const (
	SpanDispatchRun       = "dispatch.run"
	SpanDispatchRecipient = "dispatch.recipient"
	SpanProviderSend      = "provider.send"
)

// Common attribute keys
const (
	AttrCompanyID = "crm.company_id"
	AttrMessageID = "crm.message_id"
	AttrContactID = "crm.contact_id"
	AttrProvider  = "crm.provider"
	AttrLogStatus = "crm.log_status"
)
