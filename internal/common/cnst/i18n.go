package cnst

const (
	// LangEN is English
	LangEN = "en"
	// LangPT is Brazilian Portuguese
	LangPT = "pt"
	// LangDefault is the language used when the request does not carry one
	LangDefault = LangEN

	// XLang is the header (and gin context key) carrying the preferred language
	XLang = "X-Lang"
)
