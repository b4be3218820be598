package cnst

// Keys stored on the gin context by the authentication middleware
const (
	CtxKeyClaims    = "claims"
	CtxKeyPrincipal = "principal"
)
