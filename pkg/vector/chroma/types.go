package chroma

// chromaCollection represents a Chroma collection response.
type chromaCollection struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

// chromaCreateRequest is the request body for creating a collection.
type chromaCreateRequest struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// chromaUpdateRequest is the request body for updating collection metadata.
type chromaUpdateRequest struct {
	NewMetadata map[string]string `json:"new_metadata"`
}

// chromaUpsertRequest is the request body for upserting entries.
type chromaUpsertRequest struct {
	IDs        []string            `json:"ids"`
	Embeddings [][]float32         `json:"embeddings"`
	Documents  []string            `json:"documents,omitempty"`
	Metadatas  []map[string]string `json:"metadatas,omitempty"`
}

// chromaQueryRequest is the request body for querying.
type chromaQueryRequest struct {
	QueryEmbeddings [][]float32 `json:"query_embeddings"`
	NResults        int         `json:"n_results"`
	Include         []string    `json:"include"`
}

// chromaQueryResponse is the response from a query.
type chromaQueryResponse struct {
	IDs       [][]string            `json:"ids"`
	Documents [][]string            `json:"documents"`
	Distances [][]float32           `json:"distances"`
	Metadatas [][]map[string]string `json:"metadatas"`
}

// chromaGetRequest is the request body for getting entries.
type chromaGetRequest struct {
	IDs     []string `json:"ids"`
	Include []string `json:"include"`
}

// chromaGetResponse is the response from getting entries.
type chromaGetResponse struct {
	IDs        []string            `json:"ids"`
	Documents  []string            `json:"documents"`
	Metadatas  []map[string]string `json:"metadatas"`
	Embeddings [][]float32         `json:"embeddings"`
}
