package middleware

import (
	"fmt"
	"net/http"

	"github.com/mssola/useragent"

	"legitid/pkg/requestcontext"
)

// Device parses the User-Agent header into a compact "browser/os" description
// and stores it in the context. The audit pipeline records it with security
// events so sessions can be told apart in review.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if ua == "" {
			next.ServeHTTP(w, r)
			return
		}
		parsed := useragent.New(ua)
		name, version := parsed.Browser()
		desc := fmt.Sprintf("%s %s/%s", name, version, parsed.OS())
		if parsed.Mobile() {
			desc += " (mobile)"
		}
		ctx := requestcontext.WithDevice(r.Context(), desc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
