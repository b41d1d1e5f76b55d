package upstream

// CatalogResponse is one page of the upstream '_catalog' endpoint
type CatalogResponse struct {
	Repositories []string `json:"repositories"`
}

// TagSet is the response of the upstream '{name}/tags/list' endpoint
type TagSet struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}
