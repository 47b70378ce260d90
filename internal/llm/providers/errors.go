package providers

import (
	"net/http"
	"strings"

	"github.com/ahrav/go-assessor/internal/llm/transport"
)

// ServerErrorStatusThreshold is the first HTTP status treated as a server error.
const ServerErrorStatusThreshold = 500

// classifyErrorType maps a provider error code and HTTP status to an ErrorType.
// The provider code wins when it is specific.
func classifyErrorType(statusCode int, errorCode string) transport.ErrorType {
	lowerCode := strings.ToLower(errorCode)
	switch {
	case strings.Contains(lowerCode, "rate") || strings.Contains(lowerCode, "limit"):
		return transport.ErrorTypeRateLimit
	case strings.Contains(lowerCode, "timeout"):
		return transport.ErrorTypeTimeout
	case strings.Contains(lowerCode, "auth") || strings.Contains(lowerCode, "api_key"):
		return transport.ErrorTypeAuth
	case strings.Contains(lowerCode, "quota"):
		return transport.ErrorTypeQuota
	}

	switch statusCode {
	case http.StatusTooManyRequests:
		return transport.ErrorTypeRateLimit
	case http.StatusUnauthorized:
		return transport.ErrorTypeAuth
	case http.StatusForbidden:
		return transport.ErrorTypePermission
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return transport.ErrorTypeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return transport.ErrorTypeValidation
	default:
		if statusCode >= ServerErrorStatusThreshold {
			return transport.ErrorTypeProvider
		}
		return transport.ErrorTypeUnknown
	}
}
