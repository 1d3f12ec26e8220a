package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSOptions configures browser access to the conversation API.
type CORSOptions struct {
	// AllowedOrigins lists exact origins; "*" echoes any origin back.
	AllowedOrigins []string
	// AllowedMethods defaults to GET, POST and OPTIONS when empty.
	AllowedMethods []string
	// MaxAge is how long, in seconds, a browser may cache a preflight.
	MaxAge int
}

var defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}

// corsHeaders are the request headers a chat widget sends. The request id is
// accepted so a client can correlate its own logs with ours.
var corsHeaders = []string{"Authorization", "Content-Type", RequestIDHeader}

// CORS answers preflights for allowed origins and decorates their responses.
// The request id is exposed so browser clients can read it back.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	allowAny := false
	origins := map[string]struct{}{}
	for _, origin := range opts.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			allowAny = true
		default:
			origins[origin] = struct{}{}
		}
	}

	methods := map[string]struct{}{}
	var methodList []string
	for _, m := range opts.AllowedMethods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, dup := methods[m]; !dup {
			methods[m] = struct{}{}
			methodList = append(methodList, m)
		}
	}
	if len(methodList) == 0 {
		for _, m := range defaultCORSMethods {
			methods[m] = struct{}{}
		}
		methodList = defaultCORSMethods
	}

	allowedMethods := strings.Join(methodList, ", ")
	allowedHeaders := strings.Join(corsHeaders, ", ")
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = 600
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")

			_, listed := origins[origin]
			allowed := allowAny || listed
			requested := r.Header.Get("Access-Control-Request-Method")
			preflight := r.Method == http.MethodOptions && requested != ""

			if !preflight {
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Access-Control-Request-Method")
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if _, ok := methods[strings.ToUpper(requested)]; !ok {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			w.Header().Set("Access-Control-Max-Age", strconv.Itoa(maxAge))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
