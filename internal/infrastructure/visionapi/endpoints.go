package visionapi

import (
	"net/http"
	"strconv"
)

type timeoutClass int

const (
	timeoutShort timeoutClass = iota
	timeoutMedium
	timeoutLong
)

type endpoint struct {
	name    string
	method  string
	path    string
	timeout timeoutClass

	// anonymous requests never carry the bearer token.
	anonymous  bool
	idempotent bool

	// bare responses are never unwrapped from a {success, data} envelope;
	// the payload has a data field of its own.
	bare bool
}

var (
	endpointLogin    = endpoint{name: "auth.login", method: http.MethodPost, path: "/auth/login", timeout: timeoutShort}
	endpointRegister = endpoint{name: "auth.register", method: http.MethodPost, path: "/auth/register", timeout: timeoutShort}
	endpointRefresh  = endpoint{name: "auth.refresh", method: http.MethodPost, path: "/auth/refresh", timeout: timeoutShort}
	endpointMe       = endpoint{name: "auth.me", method: http.MethodGet, path: "/auth/me", timeout: timeoutShort, idempotent: true}

	endpointUpdateUser = endpoint{name: "users.update", method: http.MethodPut, path: "/users", timeout: timeoutShort, idempotent: true}

	endpointDocuments  = endpoint{name: "documents.list", method: http.MethodGet, path: "/documents", timeout: timeoutShort, idempotent: true}
	endpointDocument   = endpoint{name: "documents.get", method: http.MethodGet, path: "/documents", timeout: timeoutShort, idempotent: true, bare: true}
	endpointProcess    = endpoint{name: "documents.process", method: http.MethodPost, path: "/documents/process", timeout: timeoutLong, bare: true}
	endpointTestUpload = endpoint{name: "documents.test_upload", method: http.MethodPost, path: "/documents/test-upload", timeout: timeoutShort, anonymous: true}

	endpointServiceStatus = endpoint{name: "services.status", method: http.MethodGet, path: "/services/status", timeout: timeoutShort, idempotent: true, bare: true}
	endpointLegacyStatus  = endpoint{name: "documents.status", method: http.MethodGet, path: "/documents/status", timeout: timeoutShort, idempotent: true, bare: true}

	endpointOCR     = endpoint{name: "documents.ocr", method: http.MethodPost, path: "/documents/ocr", timeout: timeoutMedium}
	endpointPDF     = endpoint{name: "documents.pdf", method: http.MethodPost, path: "/documents/pdf", timeout: timeoutMedium}
	endpointBarcode = endpoint{name: "documents.barcode", method: http.MethodPost, path: "/documents/barcode", timeout: timeoutMedium}
	endpointMRZ     = endpoint{name: "documents.mrz", method: http.MethodPost, path: "/documents/mrz", timeout: timeoutMedium, bare: true}
	endpointAnalyze = endpoint{name: "documents.analyze", method: http.MethodPost, path: "/documents/analyze", timeout: timeoutLong}
)

// Operations lists the operation names the client reports to the resilience
// executor and metrics.
func Operations() []string {
	all := []endpoint{
		endpointLogin, endpointRegister, endpointRefresh, endpointMe, endpointUpdateUser,
		endpointDocuments, endpointDocument, endpointProcess, endpointTestUpload,
		endpointServiceStatus, endpointLegacyStatus,
		endpointOCR, endpointPDF, endpointBarcode, endpointMRZ, endpointAnalyze,
	}
	out := make([]string, 0, len(all))
	for _, ep := range all {
		out = append(out, ep.name)
	}
	return out
}

// at addresses the resource id below ep's collection path.
func (ep endpoint) at(id int64) endpoint {
	ep.path += "/" + strconv.FormatInt(id, 10)
	return ep
}
