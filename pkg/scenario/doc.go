// Package scenario loads declarative handler scenarios from YAML or JSON
// files and applies them to a probe.
//
// A scenario names a request and the response calls the handler is expected
// to make:
//
//	name: get user
//	timeout: 500ms
//	request:
//	  params:
//	    id: "42"
//	  headers:
//	    Accept: application/json
//	expect:
//	  status: 200
//	  json:
//	    id: "42"
//	  jsonPath:
//	    $.id: "42"
//	  cookies:
//	    last_user:
//	      value: "42"
//	      options:
//	        httpOnly: true
//
// A file holds one scenario or a list of them. ${VAR} and ${VAR:-default}
// are expanded from the environment before parsing, and every document is
// checked against an embedded JSON Schema.
//
// Values compare as YAML decodes them: integers are int, so a handler that
// calls res.Status(200) satisfies status: 200. The json expectation is
// compared after JSON encoding both sides, so numeric types do not matter
// there.
package scenario
