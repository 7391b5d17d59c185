package httputil

import "net/http"

// APIHeaders returns the headers sent with every REST API call.
func APIHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Accept-Language", "en-IN,en;q=0.9")
	h.Set("Accept-Encoding", "gzip, br")
	return h
}

// JSONHeaders returns APIHeaders plus a JSON content type.
func JSONHeaders() http.Header {
	h := APIHeaders()
	h.Set("Content-Type", "application/json")
	return h
}

// Apply copies h onto req without clobbering headers already set.
func Apply(req *http.Request, h http.Header) {
	for k, v := range h {
		if req.Header.Get(k) == "" {
			req.Header[k] = v
		}
	}
}
