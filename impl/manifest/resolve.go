package manifest

import (
	"encoding/json"
)

// Probe decodes just enough of the passed manifest body to classify it
func Probe(raw []byte) (SchemaProbe, error) {
	var probe SchemaProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return SchemaProbe{}, &ParseError{Phase: "probe", Err: err}
	}
	return probe, nil
}

// Classify picks the manifest variant for the passed probe:
//
//	schemaVersion 1                                -> SchemaV1Type
//	schemaVersion 2 + manifest list media type     -> ManifestListType
//	schemaVersion 2 + image manifest media type    -> ImageManifestType
//
// Anything else is a ClassificationError.
func Classify(probe SchemaProbe) (ManifestType, error) {
	switch probe.SchemaVersion {
	case 1:
		return SchemaV1Type, nil
	case 2:
		if probe.MediaType != nil {
			switch *probe.MediaType {
			case MediaTypeManifestList:
				return ManifestListType, nil
			case MediaTypeManifest:
				return ImageManifestType, nil
			}
		}
	}
	return UnknownType, &ClassificationError{SchemaVersion: probe.SchemaVersion, MediaType: probe.MediaType}
}

// Resolve classifies the passed raw manifest and then decodes it into the variant
// selected by the classification. A registry error body (no schema version, some
// errors) is returned as RegistryErrors.
func Resolve(raw []byte) (Manifest, error) {
	probe, err := Probe(raw)
	if err != nil {
		return Manifest{}, err
	}
	if probe.SchemaVersion == 0 && len(probe.Errors) != 0 {
		return Manifest{}, RegistryErrors(probe.Errors)
	}
	mt, err := Classify(probe)
	if err != nil {
		return Manifest{}, err
	}
	return parseAs(mt, raw)
}

// parseAs decodes the raw manifest into the variant for the passed type
func parseAs(mt ManifestType, raw []byte) (Manifest, error) {
	m := Manifest{Type: mt}
	var err error
	switch mt {
	case SchemaV1Type:
		m.V1 = &V1{}
		err = json.Unmarshal(raw, m.V1)
	case ImageManifestType:
		m.V2 = &V2{}
		err = json.Unmarshal(raw, m.V2)
	case ManifestListType:
		m.V2List = &V2List{}
		err = json.Unmarshal(raw, m.V2List)
	default:
		return Manifest{}, &ClassificationError{}
	}
	if err != nil {
		return Manifest{}, &ParseError{Phase: mt.String(), Err: err}
	}
	return m, nil
}
