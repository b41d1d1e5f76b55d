package manifest

import (
	"encoding/json"
	"errors"

	"github.com/google/go-containerregistry/pkg/v1/types"
)

// media types that Classify understands
const (
	MediaTypeSchema1       = string(types.DockerManifestSchema1)
	MediaTypeSchema1Signed = string(types.DockerManifestSchema1Signed)
	MediaTypeManifest      = string(types.DockerManifestSchema2)
	MediaTypeManifestList  = string(types.DockerManifestList)
)

// Platform is the 'platform' entry of a manifest list item
type Platform struct {
	Architecture string   `json:"architecture"`
	OS           string   `json:"os"`
	Variant      string   `json:"variant,omitempty"`
	Features     []string `json:"features,omitempty"`
}

// ManifestConfig is a descriptor: the 'config' of an image manifest, one of its
// 'layers', or one of the 'manifests' in a manifest list. Only list items carry
// a platform.
type ManifestConfig struct {
	MediaType string    `json:"mediaType"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest"`
	Platform  *Platform `json:"platform,omitempty"`
}

// FSLayer is one element of the 'fsLayers' list in a schema 1 manifest
type FSLayer struct {
	BlobSum string `json:"blobSum"`
}

// History is one element of the 'history' list in a schema 1 manifest. The
// compatibility entry is a JSON document encoded as a string.
type History struct {
	V1Compatibility string `json:"v1Compatibility"`
}

// V1 is the legacy schema 1 manifest. Signatures on signed manifests are ignored.
type V1 struct {
	SchemaVersion int       `json:"schemaVersion"`
	Name          string    `json:"name"`
	Tag           string    `json:"tag"`
	Architecture  string    `json:"architecture"`
	FSLayers      []FSLayer `json:"fsLayers"`
	History       []History `json:"history"`
}

// V2 is a schema 2 single-platform image manifest
type V2 struct {
	SchemaVersion int              `json:"schemaVersion"`
	MediaType     string           `json:"mediaType,omitempty"`
	Config        *ManifestConfig  `json:"config,omitempty"`
	Layers        []ManifestConfig `json:"layers,omitempty"`
}

// V2List is a schema 2 multi-platform manifest list
type V2List struct {
	SchemaVersion int              `json:"schemaVersion"`
	MediaType     string           `json:"mediaType,omitempty"`
	Manifests     []ManifestConfig `json:"manifests,omitempty"`
	Errors        []RegistryError  `json:"errors,omitempty"`
}

// ErrorDetail is the 'detail' of a registry error. Registries put different things
// in there depending on the error code, so anything that isn't an object with a tag
// is dropped rather than failing the decode.
type ErrorDetail struct {
	Tag *string `json:"Tag,omitempty"`
}

// UnmarshalJSON accepts any detail shape and keeps the tag if there is one. The
// distribution server spells it 'Tag' and some others spell it 'tag'.
func (d *ErrorDetail) UnmarshalJSON(b []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		*d = ErrorDetail{}
		return nil
	}
	for _, k := range []string{"Tag", "tag"} {
		if raw, exists := obj[k]; exists {
			var tag string
			if json.Unmarshal(raw, &tag) == nil {
				d.Tag = &tag
				return nil
			}
		}
	}
	return nil
}

// RegistryError is one element of the 'errors' list a registry returns in place of
// a manifest, e.g.:
//
//	{"errors":[{"code":"MANIFEST_UNKNOWN","message":"manifest unknown","detail":{"Tag":"v9"}}]}
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  ErrorDetail `json:"detail"`
}

// SchemaProbe is the minimum needed to classify a manifest. MediaType is a pointer
// because absent and empty are different to the classifier's error message.
type SchemaProbe struct {
	SchemaVersion int             `json:"schemaVersion"`
	MediaType     *string         `json:"mediaType,omitempty"`
	Errors        []RegistryError `json:"errors,omitempty"`
}

// ManifestType identifies the live variant of a Manifest
type ManifestType int

const (
	UnknownType ManifestType = iota
	SchemaV1Type
	ImageManifestType
	ManifestListType
)

func (mt ManifestType) String() string {
	switch mt {
	case SchemaV1Type:
		return "v1"
	case ImageManifestType:
		return "v2"
	case ManifestListType:
		return "v2list"
	}
	return "unknown"
}

// Manifest holds exactly one of the three manifest variants. Type says which
// pointer is populated.
type Manifest struct {
	Type   ManifestType
	V1     *V1
	V2     *V2
	V2List *V2List
}

// MediaType returns the media type of the live variant. Schema 1 manifests don't
// carry one so the unsigned schema 1 type is returned for them.
func (m Manifest) MediaType() string {
	switch m.Type {
	case SchemaV1Type:
		return MediaTypeSchema1
	case ImageManifestType:
		return m.V2.MediaType
	case ManifestListType:
		return m.V2List.MediaType
	}
	return ""
}

// MarshalJSON serializes the live variant in its registry wire format, which means
// the output can be passed back through Resolve.
func (m Manifest) MarshalJSON() ([]byte, error) {
	switch {
	case m.Type == SchemaV1Type && m.V1 != nil:
		return json.Marshal(m.V1)
	case m.Type == ImageManifestType && m.V2 != nil:
		return json.Marshal(m.V2)
	case m.Type == ManifestListType && m.V2List != nil:
		return json.Marshal(m.V2List)
	}
	return nil, errors.New("manifest has no live variant")
}

// UnmarshalJSON resolves the passed bytes
func (m *Manifest) UnmarshalJSON(b []byte) error {
	resolved, err := Resolve(b)
	if err != nil {
		return err
	}
	*m = resolved
	return nil
}
