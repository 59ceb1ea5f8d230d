package learner

import (
	"net/http"

	"github.com/five82/scholar/internal/api"
	"github.com/five82/scholar/internal/resource"
)

// ReauthHook returns a store error hook calling onExpired for failures that
// mean the server session has ended: any 401, and a 400 from the dashboard,
// which the server sends when the learner's upstream course credentials are
// no longer valid. Other failures are ignored.
func ReauthHook(onExpired func(res, subject string, err error)) resource.ErrorHook {
	return func(res, subject string, err error) {
		if onExpired != nil && needsReauth(res, err) {
			onExpired(res, subject, err)
		}
	}
}

func needsReauth(res string, err error) bool {
	if api.IsAuthError(err) {
		return true
	}
	return res == DashboardName && api.StatusCode(err) == http.StatusBadRequest
}
