package transport

import (
	"encoding/json"
	"strings"
)

// Response is the normalized outcome of a routed remote call
type Response struct {
	Success bool
	Status  int
	Error   string
	Raw     []byte
	Data    interface{} // decoded JSON body, or the raw string when not JSON
}

// Body returns the decoded body as a map when the response was object-shaped
func (r *Response) Body() map[string]interface{} {
	m, _ := r.Data.(map[string]interface{})
	return m
}

// Decode unmarshals the raw body into a typed destination
func (r *Response) Decode(dest interface{}) error {
	return json.Unmarshal(r.Raw, dest)
}

// verdict partitions a single strategy's reply
type verdict int

const (
	verdictNextProxy verdict = iota // transport-level problem, try the next strategy
	verdictFailure                  // remote rejected the request, stop
	verdictSuccess                  // usable reply
)

// classify applies the response-envelope ladder to one strategy's body.
// The ordering matters: relay-side errors must be inspected before the
// remote status envelope, and the remote envelope before the success checks.
func classify(raw []byte, emptyMeansBlocked bool) (verdict, *Response) {
	var data interface{}
	text := string(raw)
	if err := json.Unmarshal(raw, &data); err != nil {
		data = text
	}

	resp := &Response{Raw: raw, Data: data}

	// Relay-reported upstream error: the relay reached us but not the remote
	if obj, ok := data.(map[string]interface{}); ok {
		switch errVal := obj["error"].(type) {
		case map[string]interface{}:
			status := intField(errVal, "status")
			if status == 502 || status == 500 {
				msg, _ := errVal["message"].(string)
				if msg == "" {
					msg = "Proxy error"
				}
				resp.Error = msg
				return verdictNextProxy, resp
			}
		case string:
			if strings.Contains(errVal, "Exception") || strings.Contains(errVal, "fetch") {
				resp.Error = errVal
				return verdictNextProxy, resp
			}
		}
	}

	// Empty string body from a direct call reads as a cross-origin block
	if emptyMeansBlocked {
		if s, ok := data.(string); ok && s == "" {
			resp.Error = "CORS blocked"
			return verdictNextProxy, resp
		}
	}

	if obj, ok := data.(map[string]interface{}); ok {
		httpStatus, _ := obj["httpStatus"].(string)
		statusCode := intField(obj, "httpStatusCode")

		// Remote auth / not-found / 4xx envelopes are definitive: the proxy
		// itself was reachable, so falling through would only repeat them
		if httpStatus == "Unauthorized" || statusCode == 401 {
			resp.Status = 401
			resp.Error = "Unauthorized - check credentials"
			return verdictFailure, resp
		}
		if httpStatus == "Not Found" || statusCode == 404 {
			resp.Status = 404
			resp.Error = "Not found"
			return verdictFailure, resp
		}
		if statusCode >= 400 {
			resp.Status = statusCode
			if msg, ok := obj["message"].(string); ok && msg != "" {
				resp.Error = msg
			} else {
				resp.Error = "Request failed"
			}
			return verdictFailure, resp
		}
	}

	if isSuccessEnvelope(data) {
		resp.Success = true
		resp.Status = successStatus(data)
		return verdictSuccess, resp
	}

	// Any other object-shaped body is returned optimistically; the caller
	// knows its endpoint's shape better than the router does
	if _, ok := data.(map[string]interface{}); ok {
		resp.Success = true
		resp.Status = 200
		return verdictSuccess, resp
	}

	resp.Error = "Invalid response"
	return verdictNextProxy, resp
}

// collectionKeys are top-level keys that identify a known success payload
var collectionKeys = []string{
	"organisationUnits", "dataSets", "dataElements", "programs",
	"programStages", "systemName",
}

func isSuccessEnvelope(data interface{}) bool {
	if _, ok := data.([]interface{}); ok {
		return true
	}

	obj, ok := data.(map[string]interface{})
	if !ok {
		return false
	}

	httpStatus, _ := obj["httpStatus"].(string)
	if httpStatus == "Created" || httpStatus == "OK" {
		return true
	}
	code := intField(obj, "httpStatusCode")
	if code == 200 || code == 201 {
		return true
	}
	if respObj, ok := obj["response"].(map[string]interface{}); ok {
		if uid, ok := respObj["uid"].(string); ok && uid != "" {
			return true
		}
	}
	if status, _ := obj["status"].(string); status == "OK" || status == "SUCCESS" {
		return true
	}
	for _, key := range collectionKeys {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

func successStatus(data interface{}) int {
	if obj, ok := data.(map[string]interface{}); ok {
		if code := intField(obj, "httpStatusCode"); code != 0 {
			return code
		}
	}
	return 200
}

func intField(obj map[string]interface{}, key string) int {
	switch v := obj[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
