package api

import (
	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed regbrowse.yaml
var openapiDoc []byte

// GetSwagger returns the parsed OpenAPI document for the API
func GetSwagger() (*openapi3.T, error) {
	return openapi3.NewLoader().LoadFromData(openapiDoc)
}
