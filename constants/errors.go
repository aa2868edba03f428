package constants

// Messages d'erreur HTTP courants
const (
	ErrInvalidJSONBody   = "Invalid JSON body"
	ErrInvalidForm       = "Invalid form data"
	ErrInvalidFamilyJSON = "familyMembers must be a JSON array"
	ErrNotAuthenticated  = "Authentication required"
	ErrOriginNotAllowed  = "Origin not allowed"
)

// En-têtes et cookies HTTP
const (
	HeaderContentType     = "Content-Type"
	HeaderApplicationJSON = "application/json"
	HeaderAuthorization   = "Authorization"
	HeaderRequestID       = "X-Request-ID"
	HeaderOAuthUID        = "X-Oauth-Uid"
	HeaderOAuthEmail      = "X-Oauth-Email"
	HeaderForwardedFor    = "X-Forwarded-For"

	AdminTokenCookie = "adminToken"
)
